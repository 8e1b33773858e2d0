package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/api/rest"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/acled"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/cache"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/database"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/metrics"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/news"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/repository"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/sentiment"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/summarize"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/telemetry"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/pipeline"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/service/scheduler"
)

func main() {
	var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create zap logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = cfg.Version
	telCfg.Environment = cfg.Environment
	telCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	telCfg.Enabled = cfg.Telemetry.Enabled

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telCfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := database.NewConnectionPool(&cfg.Database, zapLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var store repository.RunRepository = repository.NewRunRepository(db)
	if cfg.Redis.URL != "" {
		runCache, err := cache.NewRunCache(&cfg.Redis, store, zapLogger)
		if err != nil {
			logger.Warn("redis unavailable, serving reads from the database", "error", err)
		} else {
			defer runCache.Close()
			store = runCache
		}
	}

	period, err := analysis.ParsePeriod(cfg.Analysis.Period)
	if err != nil {
		log.Fatalf("Invalid analysis period: %v", err)
	}

	runner := pipeline.NewService(
		acled.NewClient(cfg.ACLED, zapLogger),
		news.NewSerperClient(cfg.News, zapLogger),
		sentiment.NewClient(cfg.Sentiment, zapLogger),
		summarize.NewOpenAIClient(cfg.OpenAI, zapLogger),
		store,
		metrics.NewCollector(),
		pipeline.Config{
			Period:        period,
			Window:        cfg.Analysis.Window,
			Threshold:     cfg.Analysis.Threshold,
			Lookback:      cfg.Analysis.Lookback,
			EventLookback: cfg.Analysis.EventLookback,
		},
		logger,
	)

	// Manual triggers go through the scheduler even when periodic runs are
	// disabled, so they serialize with any scheduled batch.
	sched := scheduler.New(runner, cfg.Analysis.Countries,
		cfg.Scheduler.Interval, cfg.Scheduler.StartupDelay, logger)
	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
		defer sched.Stop()
	}

	handler := rest.NewHandler(store, sched, cfg.Analysis.Countries, db, logger)
	server := rest.NewServer(cfg, handler, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
