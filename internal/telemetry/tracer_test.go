package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/sitefront/tenant-gateway/internal/pkg/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer(config.TelemetryConfig{}, &buf, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracer wrote %q", buf.String())
	}
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "tenant-gateway-test"}
	shutdown, err := InitTracer(cfg, &buf, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "resolve-tenant")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"resolve-tenant", "tenant-gateway-test"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported spans missing %q", want)
		}
	}
}
