package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfig is wrapped by every error returned from Load.
var ErrConfig = errors.New("invalid configuration")

const (
	EnvAPIKey     = "APIKEY"
	EnvListenAddr = "LISTENER_ADDR"
)

type Config struct {
	APIKey     string
	ListenAddr string

	HTTP    HTTPConfig
	Log     LogConfig
	Trace   TraceConfig
	Convert ConvertConfig
}

type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type TraceConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

type ConvertConfig struct {
	// Quality is passed to lossy WebP encoders. Zero keeps the encoder default.
	Quality int
}

// Load reads the service configuration from the process environment.
// APIKEY and LISTENER_ADDR have no defaults.
func Load() (Config, error) {
	var errs []error

	// The key is compared byte for byte, so only a blank one is rejected.
	apiKey := os.Getenv(EnvAPIKey)
	if strings.TrimSpace(apiKey) == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAPIKey))
	}

	listenAddr := strings.TrimSpace(os.Getenv(EnvListenAddr))
	if listenAddr == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvListenAddr))
	} else if err := validateListenAddr(listenAddr); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvListenAddr, err))
	}

	p := parser{}
	cfg := Config{
		APIKey:     apiKey,
		ListenAddr: listenAddr,
		HTTP: HTTPConfig{
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     p.duration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  p.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
			Format: p.oneOf("LOG_FORMAT", "json", "json", "console"),
		},
		Trace: TraceConfig{
			ServiceName:  env("SERVICE_NAME", "webpd"),
			Exporter:     p.oneOf("TRACE_EXPORTER", "none", "none", "stdout", "otlp"),
			OTLPEndpoint: env("OTLP_ENDPOINT", ""),
			OTLPInsecure: p.boolean("OTLP_INSECURE", false),
			SampleRatio:  p.ratio("TRACE_SAMPLE_RATIO", 1),
		},
		Convert: ConvertConfig{
			Quality: p.integer("WEBP_QUALITY", 0),
		},
	}
	errs = append(errs, p.errs...)

	if cfg.Convert.Quality < 0 || cfg.Convert.Quality > 100 {
		errs = append(errs, fmt.Errorf("WEBP_QUALITY must be within 0-100, got %d", cfg.Convert.Quality))
	}
	if cfg.Trace.Exporter == "otlp" && cfg.Trace.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTLP_ENDPOINT is required when TRACE_EXPORTER=otlp"))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func validateListenAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}
	if !validHostname(host) {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}

func validHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '-':
			default:
				return false
			}
		}
	}
	return true
}

// parser collects malformed optional values instead of silently falling back.
type parser struct {
	errs []error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return fallback
	}
	return parsed
}

func (p *parser) integer(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return fallback
	}
	return parsed
}

func (p *parser) ratio(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		p.errs = append(p.errs, fmt.Errorf("%s: expected a ratio within 0-1, got %q", key, value))
		return fallback
	}
	return parsed
}

func (p *parser) boolean(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return fallback
	}
	return parsed
}

func (p *parser) oneOf(key, fallback string, allowed ...string) string {
	value := strings.ToLower(env(key, fallback))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	p.errs = append(p.errs, fmt.Errorf("%s: unsupported value %q", key, value))
	return fallback
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return fallback
	}
	return value
}
