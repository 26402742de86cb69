package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/admin"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/mapper"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/reindex"
	indexsync "github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/sync"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/company-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service")

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	engineClient, err := engine.New(cfg.Engine)
	if err != nil {
		slog.Error("failed to create engine client", "error", err)
		os.Exit(1)
	}
	defer engineClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indices := document.Indices{Companies: cfg.Engine.CompanyIndex, Employees: cfg.Engine.EmployeeIndex}
	created, err := admin.New(engineClient, indices).EnsureIndices(ctx)
	if err != nil {
		slog.Error("failed to ensure search indices", "error", err)
		os.Exit(1)
	}
	if len(created) > 0 {
		slog.Info("search indices created", "indices", created)
	}

	m := metrics.New()
	st := store.New(db)

	var invalidator indexsync.Invalidator
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search cache will not be invalidated", "error", err)
		} else {
			defer redisClient.Close()
			invalidator = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		}
	}

	hooks := indexsync.New(mapper.New(st), engineClient, indices, m, invalidator)
	retry := resilience.RetryConfig{
		MaxAttempts:  cfg.Indexer.RetryAttempts,
		InitialDelay: cfg.Indexer.RetryDelay,
	}
	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.EntityEvents,
		consumer.HandleMessage(hooks, retry, m),
	)
	indexConsumer := consumer.New(kafkaConsumer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return indexConsumer.Start(gctx)
	})

	if cfg.Indexer.ReindexSchedule != "" {
		reindexer := reindex.New(st, engineClient, indices, m)
		scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger), cron.Recover(cron.DefaultLogger)))
		_, err := scheduler.AddFunc(cfg.Indexer.ReindexSchedule, func() {
			res, err := reindexer.Run(gctx, reindex.Options{BatchSize: cfg.Indexer.BatchSize})
			if err != nil {
				slog.Error("scheduled reindex failed", "error", err)
				return
			}
			if invalidator != nil {
				if err := invalidator.Invalidate(gctx); err != nil {
					slog.Warn("search cache invalidation failed", "error", err)
				}
			}
			slog.Info("scheduled reindex finished", "failed", res.Failed(), "duration", res.Duration)
		})
		if err != nil {
			slog.Error("invalid reindex schedule", "schedule", cfg.Indexer.ReindexSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("scheduled reindex enabled", "schedule", cfg.Indexer.ReindexSchedule)
		g.Go(func() error {
			<-gctx.Done()
			<-scheduler.Stop().Done()
			return nil
		})
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdownMetrics(shutdownCtx)
		})
	}

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.EntityEvents,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("indexer service error", "error", err)
	}

	slog.Info("indexer service stopped")
}
