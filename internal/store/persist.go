package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Persistence loads and saves store snapshots. The primary file is written
// atomically (temp file + rename); the backup is a best-effort mirror whose
// failure is logged but never fails the save.
type Persistence struct {
	Store       *Store
	PrimaryPath string
	BackupPath  string

	log zerolog.Logger
}

// NewPersistence wires a persistence manager for the given store and paths.
func NewPersistence(s *Store, primary, backup string) *Persistence {
	return &Persistence{
		Store:       s,
		PrimaryPath: primary,
		BackupPath:  backup,
		log:         log.With().Str("component", "persistence").Logger(),
	}
}

// Load restores the store from the primary snapshot. Any read or decode
// failure is not fatal: the store keeps its seeded defaults (admin
// allow-list as senior commanders) and the reason is logged.
func (p *Persistence) Load() {
	raw, err := os.ReadFile(p.PrimaryPath)
	if err != nil {
		p.log.Warn().Err(err).Str("path", p.PrimaryPath).Msg("initializing new data")
		return
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.log.Warn().Err(err).Str("path", p.PrimaryPath).Msg("snapshot unreadable, initializing new data")
		return
	}
	p.Store.Restore(snap)
	p.log.Info().Str("path", p.PrimaryPath).Msg("operational data loaded")
}

// Save serializes the store to the primary file and mirrors it to the
// backup. There is no transactional guarantee across the two files.
func (p *Persistence) Save() error {
	raw, err := json.MarshalIndent(p.Store.Snapshot(), "", "  ")
	if err != nil {
		p.log.Error().Err(err).Msg("snapshot encode failed")
		return err
	}
	if err := writeAtomic(p.PrimaryPath, raw); err != nil {
		p.log.Error().Err(err).Str("path", p.PrimaryPath).Msg("save failed")
		return err
	}
	if err := os.WriteFile(p.BackupPath, raw, 0o644); err != nil {
		p.log.Error().Err(err).Str("path", p.BackupPath).Msg("backup creation failed")
	}
	p.log.Debug().Msg("data saved")
	return nil
}

// Run saves on the given interval until the context is cancelled, then
// performs one final synchronous save.
func (p *Persistence) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := p.Save(); err != nil {
				p.log.Error().Err(err).Msg("final save failed")
			}
			return
		case <-ticker.C:
			if err := p.Save(); err != nil {
				p.log.Error().Err(err).Msg("autosave failed")
			}
		}
	}
}

// writeAtomic writes data to a sibling temp file and renames it over path,
// so a crash mid-write never leaves a truncated primary snapshot.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
