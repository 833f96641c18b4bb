package telemetry

import (
	"context"
	"testing"

	"github.com/dunamismax/webpd/internal/config"
	"go.uber.org/zap"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TraceConfig{Exporter: "none"}, Build{Version: "test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := SetupTracing(context.Background(), config.TraceConfig{Exporter: "zipkin"}, Build{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetupTracingOTLPRequiresEndpoint(t *testing.T) {
	if _, err := SetupTracing(context.Background(), config.TraceConfig{Exporter: "otlp"}, Build{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestNewExporterDisabled(t *testing.T) {
	for _, name := range []string{"", "none", " NONE "} {
		exp, err := newExporter(context.Background(), config.TraceConfig{Exporter: name})
		if err != nil {
			t.Fatalf("exporter %q: %v", name, err)
		}
		if exp != nil {
			t.Fatalf("exporter %q: expected nil exporter", name)
		}
	}
}

func TestResourceRecordsBuild(t *testing.T) {
	res, err := newResource("webpd", Build{Version: "1.2.3", Transcoder: "native"})
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}

	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.AsString()
	}
	if got["service.name"] != "webpd" {
		t.Fatalf("expected service.name webpd, got %q", got["service.name"])
	}
	if got["service.version"] != "1.2.3" {
		t.Fatalf("expected service.version 1.2.3, got %q", got["service.version"])
	}
	if got[string(AttrTranscoder)] != "native" {
		t.Fatalf("expected transcoder native, got %q", got[string(AttrTranscoder)])
	}
}
