// Package main provides pbctl, a command line client for the Pushbullet API.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushbulletnet/pushbullet/internal/config"
	"github.com/pushbulletnet/pushbullet/internal/provider/resilience"
	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
	"github.com/pushbulletnet/pushbullet/internal/pushbullet/rest"
	"github.com/pushbulletnet/pushbullet/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "pbctl"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitAuth    = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to a YAML config file")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := newLogger(config.Default().Log, stderr)
		fallback.Error().Err(err).Msg("failed to load config")
		return exitFailure
	}

	log := newLogger(cfg.Log, stderr)
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting pbctl")

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.Sampling,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := telemetry.NewClientMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return exitFailure
	}

	registry := resilience.NewRegistry()
	httpCfg := resilience.DefaultClientConfig(rest.ProviderName)
	httpCfg.Timeout = cfg.API.Timeout
	httpCfg.MaxRetries = cfg.API.Retries
	httpCfg.Registry = registry
	httpCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(log)
	if cfg.API.Breaker {
		httpCfg.CircuitBreaker.ReadyToTrip = resilience.FailFast
	}

	client := pushbullet.NewClient(rest.NewClient(rest.ClientConfig{
		Token:      cfg.API.Token,
		BaseURL:    cfg.API.URL,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     log,
		Metrics:    metrics,
	}))

	err = execute(ctx, client, global.Args(), stdout, stderr)

	if h := registry.GetHealth(rest.ProviderName); h != nil {
		log.Debug().
			Str("circuit", h.CircuitState.String()).
			Uint32("requests", h.Counts.Requests).
			Uint32("failures", h.Counts.TotalFailures).
			Str("last_error", h.LastError).
			Msg("api client health")
	}

	if err != nil {
		return exitCode(err, log)
	}
	return exitOK
}

func exitCode(err error, log zerolog.Logger) int {
	var usage *usageError
	switch {
	case errors.As(err, &usage):
		log.Error().Msg(usage.Error())
		return exitUsage
	case errors.Is(err, flag.ErrHelp):
		return exitUsage
	case errors.Is(err, pushbullet.ErrAuth):
		log.Error().Err(err).Msg("access token rejected")
		return exitAuth
	default:
		log.Error().Err(err).Msg("command failed")
		return exitFailure
	}
}

func newLogger(cfg config.Log, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
