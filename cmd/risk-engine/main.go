package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kp7425/personalized-cyber/internal/api"
	"github.com/kp7425/personalized-cyber/internal/config"
	"github.com/kp7425/personalized-cyber/internal/engine"
	"github.com/kp7425/personalized-cyber/internal/events"
	"github.com/kp7425/personalized-cyber/internal/metrics"
	"github.com/kp7425/personalized-cyber/internal/scheduler"
	"github.com/kp7425/personalized-cyber/internal/store"
)

func main() {
	// Config first: a bad severity table or weight matrix must abort
	// startup before anything else comes up.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "risk-engine: %v\n", err)
		os.Exit(1)
	}

	logger := mustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting risk engine",
		zap.String("addr", cfg.Addr),
		zap.Int("window_days", cfg.WindowDays),
		zap.Int("workers", cfg.Workers),
		zap.Bool("decay_enabled", cfg.DecayEnabled),
	)

	// Postgres: profiles, history, employees, service keys
	if cfg.PostgresDSN == "" {
		logger.Fatal("postgres_dsn is required")
	}
	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	pgStore := store.NewStore(db)
	logger.Info("postgres connected")

	// Event log: ClickHouse, or in-memory for local development
	var (
		writer events.Writer
		reader engine.EventReader
	)
	if cfg.ClickHouseDSN != "" {
		chWriter, err := events.NewClickHouseWriter(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Fatal("clickhouse writer connection failed", zap.Error(err))
		}
		chReader, err := events.NewReader(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Fatal("clickhouse reader connection failed", zap.Error(err))
		}
		defer func() { _ = chReader.Close() }()
		writer, reader = chWriter, chReader
		logger.Info("clickhouse event store connected")
	} else {
		mem := events.NewMemoryStore()
		writer, reader = mem, mem
		logger.Warn("no clickhouse_dsn set, using in-memory event store")
	}
	defer writer.Close()

	// Engine and orchestrator
	eng := engine.New(cfg.Engine(), reader, logger)
	orch := engine.NewOrchestrator(eng, pgStore, pgStore, cfg.Batch(), logger, metrics.EmployeeScored)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic recompute, if configured
	var ticker *scheduler.Ticker
	if interval := cfg.RecomputeInterval(); interval > 0 {
		ticker = scheduler.NewTicker(interval)
		ticker.Start(ctx, func(now time.Time) {
			window := engine.WindowEnding(now.UTC(), cfg.WindowDays)
			stats, err := orch.RecomputeAll(ctx, window)
			if err != nil {
				logger.Error("scheduled recompute failed", zap.Error(err))
				return
			}
			metrics.BatchFinished(stats.Duration)
		})
		logger.Info("periodic recompute enabled", zap.Duration("interval", interval))
	}

	// HTTP server
	deps := &api.Dependencies{
		Store:        pgStore,
		Orchestrator: orch,
		Writer:       writer,
		Logger:       logger,
		CacheTTL:     cfg.AuthCacheTTL(),
		WindowDays:   cfg.WindowDays,
		StaticKey:    cfg.StaticServiceKey,
	}
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // batch recompute runs inline
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	if ticker != nil {
		ticker.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("risk engine stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
