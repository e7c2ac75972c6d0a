// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as gateway timeouts, logging, snapshot paths, rate limiting, squad
// limits, and observability.
package config

import (
	"errors"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cyberguard/squadbot/internal/domain"
	"github.com/cyberguard/squadbot/internal/sysutil"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "squadbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CORSConfig defines Cross-Origin Resource Sharing settings for the
// gateway's operational endpoints.
type CORSConfig struct {
	AllowedOrigins []string
}

// Config holds all configuration values for the application.
type Config struct {
	// Gateway server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Outbound gateway (where sends are POSTed)
	GatewayURL   string        // SEND_GATEWAY_URL
	GatewayToken string        // SEND_GATEWAY_TOKEN, bearer auth, optional
	SendTimeout  time.Duration // per-send HTTP timeout

	// Inbound webhook
	WebhookToken string // WEBHOOK_TOKEN, bearer auth on /webhook, optional

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Squad
	AdminIDs           []domain.MemberID // ADMIN_IDS, CSV of numeric ids
	MaxRecentMissions  int               // cap of the recent-missions list
	MaxCallsignLen     int               // runes
	MaxMissionNameLen  int               // runes
	AutosaveInterval   time.Duration     // periodic snapshot save
	TicketTimeout      time.Duration     // inactivity threshold before force-close
	TicketSweepEvery   time.Duration     // how often the expiry sweep runs
	SnapshotPath       string            // primary snapshot file
	SnapshotBackupPath string            // secondary backup file

	// Outbound rate limiting
	RateRPS   float64 // sends per second (> 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS CORSConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Gateway server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Outbound gateway
		GatewayURL:   getenv("SEND_GATEWAY_URL", "http://localhost:8081"),
		GatewayToken: getenv("SEND_GATEWAY_TOKEN", ""),
		SendTimeout:  getdur("SEND_TIMEOUT", 10*time.Second),

		// Inbound webhook
		WebhookToken: getenv("WEBHOOK_TOKEN", ""),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Squad
		AdminIDs:           parseMemberIDs(getenv("ADMIN_IDS", "")),
		MaxRecentMissions:  getint("MAX_RECENT_MISSIONS", 15),
		MaxCallsignLen:     getint("MAX_CALLSIGN_LENGTH", 20),
		MaxMissionNameLen:  getint("MAX_MISSION_NAME_LENGTH", 50),
		AutosaveInterval:   getdur("AUTOSAVE_INTERVAL", 300*time.Second),
		TicketTimeout:      getdur("TICKET_TIMEOUT", 72*time.Hour),
		TicketSweepEvery:   getdur("TICKET_SWEEP_INTERVAL", time.Hour),
		SnapshotPath:       getenv("DATA_FILE", "cyber_squad_prod.json"),
		SnapshotBackupPath: getenv("BACKUP_FILE", "cyber_squad_backup.json"),

		// Outbound rate limiting
		RateRPS:   getfloat("RATE_RPS", 25.0),
		RateBurst: getint("RATE_BURST", 25),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "squadbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return cfg, errors.New("SEND_GATEWAY_URL must not be empty")
	}
	if cfg.SendTimeout <= 0 {
		return cfg, errors.New("SEND_TIMEOUT must be > 0")
	}
	if cfg.MaxRecentMissions < 1 {
		return cfg, errors.New("MAX_RECENT_MISSIONS must be >= 1")
	}
	if cfg.MaxCallsignLen < 1 || cfg.MaxMissionNameLen < 1 {
		return cfg, errors.New("length limits must be >= 1")
	}
	if cfg.AutosaveInterval <= 0 {
		return cfg, errors.New("AUTOSAVE_INTERVAL must be > 0")
	}
	if cfg.TicketTimeout <= 0 || cfg.TicketSweepEvery <= 0 {
		return cfg, errors.New("ticket timeout settings must be > 0")
	}
	if strings.TrimSpace(cfg.SnapshotPath) == "" || strings.TrimSpace(cfg.SnapshotBackupPath) == "" {
		return cfg, errors.New("DATA_FILE and BACKUP_FILE must not be empty")
	}
	if cfg.SnapshotPath == cfg.SnapshotBackupPath {
		return cfg, errors.New("DATA_FILE and BACKUP_FILE must differ")
	}
	if cfg.RateRPS <= 0 {
		return cfg, errors.New("RATE_RPS must be > 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	return sysutil.FirstNonEmpty(os.Getenv(k), def)
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	if sysutil.IsTruthy(v) {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseMemberIDs parses a CSV of numeric member ids, dropping anything
// unparsable, deduplicating, and sorting for stable iteration.
func parseMemberIDs(s string) []domain.MemberID {
	seen := map[domain.MemberID]struct{}{}
	for _, p := range splitCSV(s) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		seen[domain.MemberID(n)] = struct{}{}
	}
	out := make([]domain.MemberID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
