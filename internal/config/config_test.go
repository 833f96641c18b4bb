package config

import (
	"errors"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIKey, "abcdef")
	t.Setenv(EnvListenAddr, "127.0.0.1:3000")
}

func TestLoadRequiredOnly(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIKey != "abcdef" {
		t.Fatalf("expected api key abcdef, got %q", cfg.APIKey)
	}
	if cfg.ListenAddr != "127.0.0.1:3000" {
		t.Fatalf("expected listen addr 127.0.0.1:3000, got %q", cfg.ListenAddr)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected default shutdown timeout 10s, got %s", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Trace.SampleRatio != 1 {
		t.Fatalf("expected default sample ratio 1, got %v", cfg.Trace.SampleRatio)
	}
	if cfg.Trace.Exporter != "none" {
		t.Fatalf("expected tracing disabled by default, got %q", cfg.Trace.Exporter)
	}
}

func TestLoadKeepsAPIKeyVerbatim(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvAPIKey, " k ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIKey != " k " {
		t.Fatalf("expected api key to keep surrounding spaces, got %q", cfg.APIKey)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	setRequired(t)

	first, err := Load()
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := Load()
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical configs, got %+v and %+v", first, second)
	}
}

func TestLoadOptionalOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("HTTP_READ_TIMEOUT", "5s")
	t.Setenv("WEBP_QUALITY", "82")
	t.Setenv("TRACE_EXPORTER", "otlp")
	t.Setenv("OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTLP_INSECURE", "true")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Convert.Quality != 82 {
		t.Fatalf("expected quality 82, got %d", cfg.Convert.Quality)
	}
	if cfg.Trace.SampleRatio != 0.25 {
		t.Fatalf("expected sample ratio 0.25, got %v", cfg.Trace.SampleRatio)
	}
	if !cfg.Trace.OTLPInsecure || cfg.Trace.OTLPEndpoint != "collector:4318" {
		t.Fatalf("unexpected trace config: %+v", cfg.Trace)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api key", env: map[string]string{EnvAPIKey: "", EnvListenAddr: "127.0.0.1:3000"}},
		{name: "blank api key", env: map[string]string{EnvAPIKey: "   ", EnvListenAddr: "127.0.0.1:3000"}},
		{name: "missing listen addr", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ""}},
		{name: "listen addr without port", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: "127.0.0.1"}},
		{name: "listen addr port out of range", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: "127.0.0.1:70000"}},
		{name: "listen addr bad host", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: "bad_host!:80"}},
		{name: "bad duration", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ":80", "HTTP_WRITE_TIMEOUT": "soon"}},
		{name: "bad log level", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ":80", "LOG_LEVEL": "loud"}},
		{name: "quality out of range", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ":80", "WEBP_QUALITY": "101"}},
		{name: "sample ratio above one", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ":80", "TRACE_SAMPLE_RATIO": "1.5"}},
		{name: "otlp without endpoint", env: map[string]string{EnvAPIKey: "k", EnvListenAddr: ":80", "TRACE_EXPORTER": "otlp"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected config error")
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestValidateListenAddr(t *testing.T) {
	valid := []string{":8080", "0.0.0.0:80", "[::1]:3000", "localhost:3000", "webpd.internal:443"}
	for _, addr := range valid {
		if err := validateListenAddr(addr); err != nil {
			t.Fatalf("expected %q to be valid, got %v", addr, err)
		}
	}

	invalid := []string{"8080", "localhost:http", "-bad-:80", "a..b:80"}
	for _, addr := range invalid {
		if err := validateListenAddr(addr); err == nil {
			t.Fatalf("expected %q to be rejected", addr)
		}
	}
}
