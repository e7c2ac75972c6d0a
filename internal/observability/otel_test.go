package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"

	"github.com/cyberguard/squadbot/internal/config"
)

func TestSetupOTelDisabled(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("shutdown is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupOTelExporterFailure(t *testing.T) {
	orig := buildExporter
	defer func() { buildExporter = orig }()

	want := errors.New("collector unavailable")
	var gotCfg config.OTELConfig
	buildExporter = func(_ context.Context, cfg config.OTELConfig) (*otlptrace.Exporter, error) {
		gotCfg = cfg
		return nil, want
	}

	cfg := config.OTELConfig{
		Enabled:     true,
		Endpoint:    "otel:4317",
		Insecure:    true,
		ServiceName: "squadbot",
		SampleRatio: 1,
	}
	if _, err := SetupOTel(context.Background(), cfg, "test"); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if gotCfg.Endpoint != "otel:4317" {
		t.Fatalf("exporter saw endpoint %q", gotCfg.Endpoint)
	}
}
