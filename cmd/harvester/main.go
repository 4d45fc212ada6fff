package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baires-data/boletin-pipeline/internal/api"
	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/internal/harvest"
	"github.com/baires-data/boletin-pipeline/internal/ledger"
	"github.com/baires-data/boletin-pipeline/internal/pdftext"
	"github.com/baires-data/boletin-pipeline/internal/scheduler"
	"github.com/baires-data/boletin-pipeline/internal/storage"
	"github.com/baires-data/boletin-pipeline/pkg/config"
	"github.com/baires-data/boletin-pipeline/pkg/health"
	"github.com/baires-data/boletin-pipeline/pkg/kafka"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/metrics"
	"github.com/baires-data/boletin-pipeline/pkg/postgres"
	"github.com/baires-data/boletin-pipeline/pkg/redis"
	"github.com/baires-data/boletin-pipeline/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	daemon := flag.Bool("daemon", false, "keep running, harvesting on an interval")
	fullRefresh := flag.Bool("full-refresh", false, "refresh the reference snapshots before harvesting")
	forceStart := flag.String("force-start", "", "override the watermark with a dd-mm-yyyy start date")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting harvester", "daemon", *daemon, "full_refresh", *fullRefresh)

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

	// The text cache is an optimization; the harvester runs without Redis.
	var cache *pdftext.TextCache
	if redisClient, err := redis.NewClient(cfg.Redis); err != nil {
		slog.Warn("redis unavailable, pdf text cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cache = pdftext.NewTextCache(redisClient, cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.HarvestDays)
	defer producer.Close()

	sched, err := buildScheduler(cfg.Harvest, *forceStart, db)
	if err != nil {
		slog.Error("invalid harvest dates", "error", err)
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

	runner := harvest.New(harvest.Params{
		API:       api.New(cfg.API),
		Store:     storage.NewPostgres(db),
		Ledger:    ledger.NewPostgres(db),
		Scheduler: sched,
		Extractor: pdftext.NewPDFCPU(),
		Norms:     storage.NewReader(db),
		Cache:     cache,
		Events:    producer,
		Metrics:   m,
		Workers:   cfg.Harvest.Workers,
	})

	stopHealth := startHealthServer(cfg.Server, db)
	defer stopHealth()

	if *fullRefresh {
		if err := runner.FullRefresh(ctx); err != nil {
			slog.Error("full refresh incomplete", "error", err)
		}
	}

	if !*daemon {
		if _, err := runner.Run(ctx); err != nil {
			slog.Error("harvest run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(cfg.Harvest.DaemonInterval)
	defer ticker.Stop()
	for {
		if _, err := runner.Run(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("harvester stopped")
				return
			}
			slog.Error("harvest run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("harvester stopped")
			return
		case <-ticker.C:
		}
	}
}

func buildScheduler(cfg config.HarvestConfig, forceStart string, db *postgres.Client) (*scheduler.Scheduler, error) {
	initial, err := time.Parse(boletin.DateLayout, cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing startDate %q: %w", cfg.StartDate, err)
	}
	var opts []scheduler.Option
	forced := forceStart
	if forced == "" {
		forced = cfg.ForcedStartDate
	}
	if forced != "" {
		day, err := time.Parse(boletin.DateLayout, forced)
		if err != nil {
			return nil, fmt.Errorf("parsing forced start date %q: %w", forced, err)
		}
		opts = append(opts, scheduler.WithForcedStart(day))
	}
	return scheduler.New(scheduler.NewPostgresWatermark(db), initial, opts...), nil
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
