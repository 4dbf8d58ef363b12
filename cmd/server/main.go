// Package main implements the palette API server: it accepts palette
// generation tasks over HTTP, orchestrates their fan-out rendering off NATS
// triggers, and reconciles stale tasks in the background.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/palettekit/palette-api/internal/api"
	"github.com/palettekit/palette-api/internal/config"
	"github.com/palettekit/palette-api/internal/events"
	"github.com/palettekit/palette-api/internal/platform/cache"
	"github.com/palettekit/palette-api/internal/platform/gemini"
	"github.com/palettekit/palette-api/internal/platform/logger"
	"github.com/palettekit/palette-api/internal/platform/natsmq"
	"github.com/palettekit/palette-api/internal/platform/postgres"
	"github.com/palettekit/palette-api/internal/platform/sysinfo"
	"github.com/palettekit/palette-api/internal/service"
	"github.com/palettekit/palette-api/internal/service/auth"
	"github.com/palettekit/palette-api/internal/task"
)

const (
	shutdownTimeout = 15 * time.Second

	// terminalTaskCacheSize bounds the in-process read cache for finished
	// tasks.
	terminalTaskCacheSize = 4096
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	log.Info("configuration loaded", "port", cfg.Server.Port, "log_level", cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database.
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.RunMigrations(db); err != nil {
		return err
	}
	log.Info("database ready")

	taskStore := postgres.NewTaskStore(db)
	variationStore := postgres.NewVariationStore(db)

	// Message bus.
	queue, err := natsmq.Connect(ctx, cfg.NATS.URL, log)
	if err != nil {
		return fmt.Errorf("connect message bus: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Status changes go to the bus and to the log.
	broadcaster := events.NewBroadcaster(log)
	broadcaster.Register(events.NewLogPublisher(log))
	broadcaster.Register(queue)

	// Generation backend.
	generator, err := gemini.NewGenerator(ctx, log, cfg.Generation)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	// Fan-out engine: limiter, adaptive governor, orchestrator.
	limiter := task.NewLimiter(cfg.Worker.Concurrency)
	governor := task.NewPressureGovernor(limiter, sysinfo.NewMemorySampler(), task.GovernorConfig{
		ThresholdPercent: cfg.Worker.MemoryThresholdPercent,
		MinCapacity:      cfg.Worker.MinConcurrency,
		SampleInterval:   cfg.Worker.MemorySampleInterval(),
	}, log)
	go governor.Run(ctx)

	orchestrator := task.NewOrchestrator(
		taskStore,
		variationStore,
		generator,
		generator,
		limiter,
		broadcaster,
		task.OrchestratorConfig{
			UnitTimeout:       cfg.Worker.UnitTimeout(),
			HeartbeatInterval: cfg.Worker.HeartbeatInterval(),
		},
		log,
	)

	stopConsumer, err := queue.SubscribeTriggers(ctx, orchestrator)
	if err != nil {
		return fmt.Errorf("subscribe task triggers: %w", err)
	}
	defer stopConsumer()

	// Stale task reconciliation.
	sweeper := task.NewSweeper(taskStore, broadcaster, task.SweeperConfig{
		Interval:      cfg.Sweeper.Interval(),
		PendingAge:    cfg.Sweeper.PendingAge(),
		ProcessingAge: cfg.Sweeper.ProcessingAge(),
	}, log)
	go sweeper.Run(ctx)

	// HTTP surface.
	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("create token verifier: %w", err)
	}
	taskCache, err := cache.NewTaskCache(terminalTaskCacheSize)
	if err != nil {
		return fmt.Errorf("create task cache: %w", err)
	}
	defer taskCache.Close()

	taskService := service.NewTaskService(taskStore, variationStore, queue, taskCache, log)
	router := api.NewRouter(api.NewTaskHandler(taskService, log), verifier)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
