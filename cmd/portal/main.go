// Command portal runs the telemetry ingestion and aggregation server for
// autonomous agent fleets.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	portalhttp "github.com/openclaw/portal/internal/adapter/http"
	portalnats "github.com/openclaw/portal/internal/adapter/nats"
	"github.com/openclaw/portal/internal/adapter/otel"
	"github.com/openclaw/portal/internal/adapter/postgres"
	"github.com/openclaw/portal/internal/adapter/ristretto"
	"github.com/openclaw/portal/internal/adapter/ws"
	"github.com/openclaw/portal/internal/config"
	"github.com/openclaw/portal/internal/logger"
	"github.com/openclaw/portal/internal/middleware"
	"github.com/openclaw/portal/internal/port/stream"
	"github.com/openclaw/portal/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth_enabled", cfg.Auth.Token != "",
		"nats_enabled", cfg.NATS.URL != "",
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	var pub stream.Publisher
	if cfg.NATS.URL != "" {
		queue, err := portalnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		pub = queue
	}

	cache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	hub := ws.NewHub()
	eventLog := postgres.NewEventLog(pool)
	state := service.NewState()
	agg := service.NewAggregator(state, eventLog, hub, pub, metrics)
	query := service.NewQuery(state, eventLog, cache)

	// Rebuild the in-memory projections from the durable log before serving.
	service.NewRecovery(agg, eventLog, cfg.Seed.File).Run(ctx)

	// --- HTTP ---

	r := chi.NewRouter()

	r.Use(portalhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(portalhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Auth(cfg.Auth.Token))

	r.Get("/ws", hub.HandleWS)
	portalhttp.MountRoutes(r, portalhttp.NewHandlers(agg, query))

	addr := ":" + strconv.Itoa(cfg.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
