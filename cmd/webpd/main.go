package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dunamismax/webpd/internal/api"
	"github.com/dunamismax/webpd/internal/config"
	"github.com/dunamismax/webpd/internal/logging"
	"github.com/dunamismax/webpd/internal/pidfile"
	"github.com/dunamismax/webpd/internal/telemetry"
	"github.com/dunamismax/webpd/internal/transcode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const appName = "webpd"

// Set with -ldflags "-X main.version=...".
var version = "dev"

var errBind = errors.New("bind listener")

type options struct {
	pidfile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s provides a WebP image conversion service.\n\nUsage: %s [-P pidfile]\n\n", appName, appName)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.pidfile, "P", "", "write pid to file (shorthand)")
	fs.StringVar(&opts.pidfile, "pidfile", "", "write pid to file")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	if err := loadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := serve(ctx, logger, cfg, opts); err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	return nil
}

func serve(ctx context.Context, logger *zap.Logger, cfg config.Config, opts options) error {
	logger.Info("starting",
		zap.String("app", appName),
		zap.String("version", version),
		zap.String("transcoder", transcode.Backend),
	)

	if opts.pidfile != "" {
		pid, err := pidfile.Write(opts.pidfile)
		if err != nil {
			return err
		}
		logger.Info("pid file written", zap.String("path", opts.pidfile), zap.Int("pid", pid))
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Trace, telemetry.Build{
		Version:    version,
		Transcoder: transcode.Backend,
	}, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	if err := transcode.Startup(); err != nil {
		return fmt.Errorf("start transcoder runtime: %w", err)
	}
	defer transcode.Shutdown()

	transcoder, err := transcode.New(transcode.Options{Quality: cfg.Convert.Quality})
	if err != nil {
		return fmt.Errorf("build transcoder: %w", err)
	}

	app := api.NewServer(logger, cfg, transcoder)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w %s: %w", errBind, cfg.ListenAddr, err)
	}

	httpServer := &http.Server{
		Handler:      app.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", listener.Addr().String()))
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		return nil
	}
	logger.Info("web server stopped")
	return nil
}
