// Package main is the entry point for the s3sig client daemon. It wires a
// credentials source into a SigV4 signer, a signing proxy transport, and an
// S3 HTTP client, then exposes a diagnostic HTTP surface (health, metrics,
// and a read-only view of the multipart registry) while it runs.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/s3sig/internal/capability"
	"github.com/prn-tf/s3sig/internal/config"
	"github.com/prn-tf/s3sig/internal/credentials"
	"github.com/prn-tf/s3sig/internal/handler"
	"github.com/prn-tf/s3sig/internal/lock"
	"github.com/prn-tf/s3sig/internal/metrics"
	"github.com/prn-tf/s3sig/internal/registry"
	"github.com/prn-tf/s3sig/internal/registry/postgres"
	"github.com/prn-tf/s3sig/internal/registry/sqlite"
	"github.com/prn-tf/s3sig/internal/s3client"
	"github.com/prn-tf/s3sig/internal/sigv4"
	"github.com/prn-tf/s3sig/internal/signingproxy"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting s3sig client")

	cfg, err := config.Load(os.Getenv("S3SIG_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, closeReg, err := openRegistry(ctx, cfg.Registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open multipart registry")
	}
	defer closeReg()

	locker := openLocker(cfg.Redis)

	m := metrics.New()

	credSource := credentials.NewCache(credentials.NewEnv(), 15*time.Minute)
	signer := sigv4.New()
	scope := sigv4.Scope{Region: cfg.Signing.Region, Service: cfg.Signing.Service}

	proxy := signingproxy.New(credSource, signer, scope, http.DefaultTransport, m)
	httpClient := &http.Client{Transport: proxy, Timeout: 60 * time.Second}

	s3c := s3client.New(httpClient, cfg.Signing.Region)
	if cfg.Signing.Endpoint != "" {
		s3c.Endpoint = cfg.Signing.Endpoint
	}

	root := capability.New(s3c, reg, m)
	_ = root // exercised by capability-driven callers built on top of this daemon; kept alive here

	sweeper := registry.NewSweeper(reg, locker, cfg.Registry.StaleAfter, log.Logger, m)
	go sweeper.RunLoop(ctx, cfg.Registry.GCInterval)

	diag := handler.NewDiagnosticHandler(handler.DiagnosticConfig{
		Registry: reg,
		Metrics:  m,
		Logger:   log.Logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	diag.RegisterRoutes(r)

	addr := ":8090"
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("diagnostic server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("diagnostic server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("diagnostic server shutdown error")
	}
}

func openRegistry(ctx context.Context, cfg config.RegistryConfig) (registry.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresDSN, log.Logger)
		if err != nil {
			return nil, func() {}, err
		}
		store := postgres.NewStore(db)
		return store, func() { _ = store.Close() }, nil
	default:
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath), log.Logger)
		if err != nil {
			return nil, func() {}, err
		}
		store := sqlite.NewStore(db)
		return store, func() { _ = store.Close() }, nil
	}
}

func openLocker(cfg config.RedisConfig) lock.Locker {
	if !cfg.Enabled {
		return lock.NewMemoryLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return lock.NewRedisLocker(client)
}
