package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
)

// clearEnv blanks every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"SEND_GATEWAY_URL", "SEND_GATEWAY_TOKEN", "SEND_TIMEOUT",
		"WEBHOOK_TOKEN", "LOG_LEVEL", "LOG_PRETTY",
		"ADMIN_IDS", "MAX_RECENT_MISSIONS", "MAX_CALLSIGN_LENGTH",
		"MAX_MISSION_NAME_LENGTH", "AUTOSAVE_INTERVAL", "TICKET_TIMEOUT",
		"TICKET_SWEEP_INTERVAL", "DATA_FILE", "BACKUP_FILE",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.MaxRecentMissions != 15 || cfg.MaxCallsignLen != 20 || cfg.MaxMissionNameLen != 50 {
		t.Errorf("squad limits = %d/%d/%d", cfg.MaxRecentMissions, cfg.MaxCallsignLen, cfg.MaxMissionNameLen)
	}
	if cfg.AutosaveInterval != 300*time.Second {
		t.Errorf("AutosaveInterval = %v", cfg.AutosaveInterval)
	}
	if cfg.TicketTimeout != 72*time.Hour || cfg.TicketSweepEvery != time.Hour {
		t.Errorf("ticket timing = %v / %v", cfg.TicketTimeout, cfg.TicketSweepEvery)
	}
	if cfg.SnapshotPath != "cyber_squad_prod.json" || cfg.SnapshotBackupPath != "cyber_squad_backup.json" {
		t.Errorf("snapshot paths = %q / %q", cfg.SnapshotPath, cfg.SnapshotBackupPath)
	}
	if cfg.RateRPS != 25.0 || cfg.RateBurst != 25 {
		t.Errorf("rate = %v / %d", cfg.RateRPS, cfg.RateBurst)
	}
	if len(cfg.AdminIDs) != 0 {
		t.Errorf("AdminIDs = %v, want empty", cfg.AdminIDs)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "squadbot" || cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("OTEL = %+v", cfg.OTEL)
	}
}

func TestLoadOverridesAndNormalization(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GIN_MODE", "DEBUG")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("ADMIN_IDS", " 7, 3,7,abc, 1 ")
	t.Setenv("TICKET_TIMEOUT", "24h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q, want debug", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if want := []domain.MemberID{1, 3, 7}; !reflect.DeepEqual(cfg.AdminIDs, want) {
		t.Errorf("AdminIDs = %v, want %v", cfg.AdminIDs, want)
	}
	if cfg.TicketTimeout != 24*time.Hour {
		t.Errorf("TicketTimeout = %v", cfg.TicketTimeout)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero rate", "RATE_RPS", "0"},
		{"zero burst", "RATE_BURST", "0"},
		{"zero recent", "MAX_RECENT_MISSIONS", "0"},
		{"zero callsign", "MAX_CALLSIGN_LENGTH", "0"},
		{"sampler out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(c.key, c.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", c.key, c.val)
			}
		})
	}
}

func TestLoadRejectsEqualSnapshotPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_FILE", "same.json")
	t.Setenv("BACKUP_FILE", "same.json")
	if _, err := Load(); err == nil {
		t.Fatalf("Load accepted equal snapshot paths")
	}
}

func TestGinModeFallsBackToRelease(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "bogus")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q, want release", cfg.GinMode)
	}
}
