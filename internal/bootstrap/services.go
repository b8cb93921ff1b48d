package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/crawlspace/harvester/config"
	"github.com/crawlspace/harvester/internal/adapters/httpfetch"
	"github.com/crawlspace/harvester/internal/adapters/orchestrator"
	"github.com/crawlspace/harvester/internal/adapters/reaper"
	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/data"
	"github.com/crawlspace/harvester/internal/domain/retrypolicy"
	"github.com/crawlspace/harvester/internal/service"
)

// ServiceDeps carries shared infrastructure into service wiring.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Fetcher overrides the built-in HTTP fetcher when set.
	Fetcher core.Fetcher
}

// Services holds the wired application services.
type Services struct {
	Crawl  *service.CrawlService
	Reaper *reaper.Reaper
}

// NewServices wires repositories, the batch runner, and the services.
func NewServices(deps *ServiceDeps) (*Services, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return nil, errors.New("config and database are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	jobRepo := data.NewJobRepo(deps.DB, data.JobRepoOptions{Logger: logger})
	progressRepo := data.NewProgressRepo(deps.DB, data.ProgressRepoOptions{Logger: logger})
	abuseRepo := data.NewAbuseLogRepo(deps.DB, data.AbuseLogRepoOptions{})
	catalogRepo := data.NewCatalogRepo(deps.DB)

	var cache core.CacheRepository
	if deps.RedisClient != nil {
		cache = data.NewRedisCacheRepo(deps.RedisClient)
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = httpfetch.New(httpfetch.Options{UserAgent: cfg.Crawl.UserAgent})
	}

	policy := retrypolicy.New(retrypolicy.Config{
		MaxRetries:      cfg.Retry.MaxRetries,
		BaseDelay:       cfg.Retry.BaseDelay,
		MaxDelay:        cfg.Retry.MaxDelay,
		ExponentialBase: cfg.Retry.ExponentialBase,
		Jitter:          cfg.Retry.Jitter,
	})

	runner, err := orchestrator.New(orchestrator.Options{
		Jobs:     jobRepo,
		Progress: progressRepo,
		AbuseLog: abuseRepo,
		Catalog:  catalogRepo,
		Fetcher:  fetcher,
		Retry:    policy,
		Config:   cfg.Crawl,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire orchestrator: %w", err)
	}

	crawlSvc, err := service.NewCrawlService(service.CrawlServiceOptions{
		Jobs:     jobRepo,
		Progress: progressRepo,
		AbuseLog: abuseRepo,
		Catalog:  catalogRepo,
		Runner:   runner,
		Cache:    cache,
		Crawl:    cfg.Crawl,
		CacheTTL: cfg.Cache,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire crawl service: %w", err)
	}

	staleReaper, err := reaper.New(reaper.Options{
		Progress: progressRepo,
		Config:   cfg.Reaper,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper: %w", err)
	}

	return &Services{Crawl: crawlSvc, Reaper: staleReaper}, nil
}

// Run starts the background services and blocks until SIGINT/SIGTERM, then
// shuts them down gracefully.
func Run(ctx context.Context, cfg *config.AppConfig, services *Services, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep once before any job resumes so stale processing rows are already
	// pending, then recover jobs interrupted by the previous process.
	if _, err := services.Reaper.Sweep(ctx); err != nil {
		return fmt.Errorf("startup sweep: %w", err)
	}
	recovered, err := services.Crawl.RecoverInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		logger.InfoContext(ctx, "interrupted jobs recovered", "count", recovered)
	}

	reaperDone := make(chan error, 1)
	go func() {
		reaperDone <- services.Reaper.Run(ctx)
	}()

	metricsServer := startMetricsServer(cfg.Observability.Metrics, logger)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := services.Crawl.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("crawl shutdown incomplete", "error", shutdownErr)
	}
	if metricsServer != nil {
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("metrics server shutdown failed", "error", shutdownErr)
		}
	}
	return <-reaperDone
}

func startMetricsServer(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *http.Server {
	if !cfg.IsEnabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "addr", cfg.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server
}
