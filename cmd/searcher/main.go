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

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/company-search/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port)

	engineClient, err := engine.New(cfg.Engine)
	if err != nil {
		slog.Error("failed to create engine client", "error", err)
		os.Exit(1)
	}
	defer engineClient.Close()

	m := metrics.New()
	indices := document.Indices{Companies: cfg.Engine.CompanyIndex, Employees: cfg.Engine.EmployeeIndex}

	checker := health.NewChecker(cfg.Engine.Timeout)
	checker.Register("engine", health.PingCheck(engineClient))

	// Searches never read the primary store, so an outage only degrades
	// readiness and the instance stays in rotation.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, readiness will report it degraded", "error", err)
		checker.Register("postgres", health.Optional(func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDown, Message: "not connected"}
		}))
	} else {
		defer db.Close()
		checker.Register("postgres", health.Optional(health.PingCheck(db)))
	}

	var searchCache *cache.SearchCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			searchCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Optional(health.PingCheck(redisClient)))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	exec := executor.New(engineClient, indices, m)
	h := handler.New(exec, searchCache, cfg.Search, m)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := handler.NewRouter(h, checker, m, handler.RouterConfig{
		Timeout:     cfg.Server.WriteTimeout,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening",
		"addr", server.Addr,
		"company_index", indices.Companies,
		"employee_index", indices.Employees,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
