package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/baires-data/boletin-pipeline/internal/enrich"
	"github.com/baires-data/boletin-pipeline/internal/harvest"
	"github.com/baires-data/boletin-pipeline/internal/storage"
	"github.com/baires-data/boletin-pipeline/pkg/config"
	"github.com/baires-data/boletin-pipeline/pkg/health"
	"github.com/baires-data/boletin-pipeline/pkg/kafka"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/metrics"
	"github.com/baires-data/boletin-pipeline/pkg/postgres"
	"github.com/baires-data/boletin-pipeline/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	daemon := flag.Bool("daemon", false, "keep running, re-enriching as harvested days arrive")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting enricher", "daemon", *daemon)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	err = resilience.WithTimeout(ctx, 30*time.Second, "apply-schema", func(ctx context.Context) error {
		return storage.Migrate(ctx, db)
	})
	if err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	runner := enrich.New(enrich.Params{
		Source:  storage.NewReader(db),
		Store:   storage.NewPostgres(db),
		Config:  cfg.Resolver,
		Metrics: m,
	})

	if !*daemon {
		if _, err := runner.Run(ctx); err != nil {
			slog.Error("enrichment run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	stopHealth := startHealthServer(cfg.Server, db)
	defer stopHealth()

	// Full recomputation is cheap relative to a day's harvest, but there is
	// no point stacking runs: while one is in flight, further day-merged
	// events only mark it stale and the loop runs once more at the end.
	var mu sync.Mutex
	running := false
	stale := false
	runOnce := func(ctx context.Context) {
		mu.Lock()
		if running {
			stale = true
			mu.Unlock()
			return
		}
		running = true
		mu.Unlock()
		for {
			if _, err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("enrichment run failed", "error", err)
			}
			mu.Lock()
			if !stale || ctx.Err() != nil {
				running = false
				mu.Unlock()
				return
			}
			stale = false
			mu.Unlock()
		}
	}

	// Catch up on whatever the harvester merged while we were down.
	go runOnce(ctx)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.HarvestDays,
		func(ctx context.Context, key, value []byte) error {
			event, err := kafka.DecodeJSON[harvest.DayMerged](value)
			if err != nil {
				slog.Warn("ignoring undecodable day-merged event", "key", string(key), "error", err)
				return nil
			}
			slog.Info("day merged upstream, re-enriching",
				"fecha", event.Fecha,
				"normas", event.Normas,
				"licitaciones", event.Licitaciones)
			go runOnce(ctx)
			return nil
		})
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
	slog.Info("enricher stopped")
}

func startHealthServer(cfg config.ServerConfig, db *postgres.Client) func() {
	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", checker.LiveHandler())
	mux.HandleFunc("/health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	go func() {
		slog.Info("health server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
}
