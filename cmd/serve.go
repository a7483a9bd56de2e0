package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/ai"
	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/controller"
	"taskflow/internal/database"
	"taskflow/internal/middleware"
	"taskflow/internal/mockapi"
	"taskflow/internal/queue"
	"taskflow/internal/repository"
	"taskflow/internal/routes"
	"taskflow/internal/worker"
	"taskflow/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

mock mode answers every route from fixtures and needs no backing services.
live mode stores data in PostgreSQL, caches list pages in Redis and, when
KAFKA_BROKERS is set, queues writes through Kafka.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "mock or live (default from API_MODE)")
	return cmd
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(ctx context.Context, mode string) error {
	cfg := config.Get()
	if mode != "" {
		cfg.Mode = mode
	}
	logger.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := middleware.NewMetrics()
	var handler http.Handler
	switch cfg.Mode {
	case config.ModeMock:
		handler = routes.Mock(mockapi.New(cfg.MockTotal), metrics)
	case config.ModeLive:
		h, cleanup, err := live(ctx, cfg, metrics)
		if err != nil {
			return err
		}
		defer cleanup()
		handler = h
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "mode", cfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Server shutdown error", "error", err)
	}
	logger.Info(shutdownCtx, "Server stopped")
	return nil
}

// live wires the database-backed handlers. Writes go through Kafka when
// brokers are configured and are applied inline otherwise.
func live(ctx context.Context, cfg *config.Config, metrics *middleware.Metrics) (http.Handler, func(), error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, nil, errors.New("database not available")
	}
	if err := database.Migrate(ctx, db); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("schema migration failed: %w", err)
	}
	repo := repository.New(db)

	rdb := cache.Client(ctx)
	pages := cache.NewPages(rdb, time.Duration(cfg.CacheTTL)*time.Second)
	applier := worker.NewApplier(repo, pages)
	metrics.Registry().MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "taskflow_commands_applied_total",
		Help: "Write commands applied to the database.",
	}, func() float64 { return float64(applier.Processed()) }))

	opts := []controller.Option{
		controller.WithCache(pages),
		controller.WithReadinessCheck("database", repo),
	}
	if rdb != nil {
		opts = append(opts, controller.WithReadinessCheck("redis", pingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})))
	}

	cleanup := []func(){database.Close}
	var publisher controller.Publisher = applier
	if len(cfg.KafkaBrokers) > 0 {
		queue.EnsureTopic(ctx, cfg)
		pub := queue.NewPublisher(queue.NewWriter(cfg))
		publisher = pub
		cleanup = append(cleanup, func() { _ = pub.Close() })
		go func() {
			if err := worker.Run(ctx, cfg, applier); err != nil {
				logger.Error(ctx, "Worker pool stopped", "error", err)
			}
		}()
	} else {
		logger.Info(ctx, "No Kafka brokers configured; applying writes inline")
	}
	if rdb != nil {
		cleanup = append(cleanup, func() { _ = rdb.Close() })
	}

	var generator ai.Generator = ai.Fixed{}
	if cfg.OpenAIAPIKey != "" {
		generator = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	} else {
		logger.Info(ctx, "OPENAI_API_KEY not set; subtasks come from the fixed generator")
	}

	h := controller.New(repo, publisher, generator, opts...)
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
	return routes.Live(h, cfg.JWTSecret, metrics), closeAll, nil
}
