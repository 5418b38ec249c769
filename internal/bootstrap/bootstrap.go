// Package bootstrap wires the moodboard service components together.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moorea/moodboard/internal/aggregator"
	"github.com/moorea/moodboard/internal/api"
	"github.com/moorea/moodboard/internal/cache"
	"github.com/moorea/moodboard/internal/classifier"
	"github.com/moorea/moodboard/internal/config"
	"github.com/moorea/moodboard/internal/embedding"
	"github.com/moorea/moodboard/internal/jobs"
	"github.com/moorea/moodboard/internal/keywords"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/metrics"
	"github.com/moorea/moodboard/internal/pipeline"
	"github.com/moorea/moodboard/internal/provider"
	"github.com/moorea/moodboard/internal/rerank"
	"github.com/moorea/moodboard/internal/server"
	"github.com/moorea/moodboard/internal/vocab"
)

// environmentShare is the fraction of moodboard slots reserved for setting
// shots rather than clothing.
const environmentShare = 4

// healthCheckTimeout bounds one dependency probe.
const healthCheckTimeout = 3 * time.Second

// Components holds everything the service needs to run.
type Components struct {
	Config  *config.Config
	Logger  logger.Logger
	Cache   *cache.Cache
	Manager *jobs.Manager
	Server  *server.Server
}

// New builds the full component graph from configuration.
func New(cfg *config.Config, log logger.Logger) (*Components, error) {
	m := metrics.NewDefault()

	store := vocab.NewStore(cfg.Service.VocabularyPath, log)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	responseCache, err := cache.New(cache.Config{
		Address:           cfg.Redis.Address,
		Password:          cfg.Redis.Password,
		Database:          cfg.Redis.Database,
		ClassificationTTL: cfg.Redis.ClassificationCacheTTL,
		ProviderTTL:       cfg.Redis.ProviderCacheTTL,
	}, log)
	if err != nil {
		// The cache is an optimization; run without it rather than refuse
		// to start.
		log.Warn("redis unavailable, running without response cache", logger.Error(err))
		responseCache = nil
	}

	embedder := embedding.NewClient(embedding.ClientConfig{
		BaseURL: cfg.Embedding.ServiceURL,
		Timeout: cfg.Embedding.Timeout,
		Slots:   int64(cfg.Embedding.InferenceSlots),
	})

	clf := classifier.New(embedder, store, responseCache, classifier.Config{
		MinConfidence:       cfg.Pipeline.MinConfidence,
		SupportingThreshold: cfg.Pipeline.SupportingThreshold,
	}, log)

	expander := keywords.NewExpander(store, cfg.Pipeline.MaxSearchKeywords, log)

	unsplash := provider.NewUnsplash(cfg.Providers.UnsplashAccessKey, cfg.Providers.Timeout, responseCache, log)
	providers := []provider.Provider{
		unsplash,
		provider.NewPexels(cfg.Providers.PexelsAPIKey, cfg.Providers.Timeout, responseCache, log),
		provider.NewFlickr(cfg.Providers.FlickrAPIKey, cfg.Providers.Timeout, responseCache, log),
	}

	var fallback provider.Provider
	if cfg.Providers.LocalPoolPath != "" {
		pool, poolErr := provider.NewLocalPool(cfg.Providers.LocalPoolPath, log)
		if poolErr != nil {
			log.Warn("local image pool unavailable", logger.Error(poolErr))
		} else {
			fallback = pool
		}
	}

	agg := aggregator.New(providers, fallback, m, aggregator.Config{
		MaxCandidates: cfg.Pipeline.MaxCandidates,
		Timeout:       cfg.Pipeline.AggregateTimeout,
	}, log)

	reranker := rerank.New(embedder, rerank.Config{
		PrimaryThreshold:   cfg.Pipeline.PrimarySimilarity,
		SecondaryThreshold: cfg.Pipeline.SecondarySimilarity,
		MinRanked:          cfg.Pipeline.MinRankedImages,
		Size:               cfg.Pipeline.MoodboardSize,
		CandidateTimeout:   cfg.Pipeline.CandidateTimeout,
		Concurrency:        cfg.Embedding.InferenceSlots,
	}, log)

	pipe := pipeline.New(clf, expander, agg, reranker, unsplash, m, pipeline.Config{
		MoodboardSize:    cfg.Pipeline.MoodboardSize,
		EnvironmentSlots: cfg.Pipeline.MoodboardSize / environmentShare,
	}, log)

	manager := jobs.NewManager(jobs.NewMemoryStore(), pipe, cfg.Service.Workers, m, log)

	handler := api.NewHandler(manager, store, log)
	srv := server.New(&server.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
	}, log, func(router *gin.Engine) {
		api.SetupRoutes(router, handler)
		server.RegisterHealthRoutes(router, cfg.Service.Name, cfg.Service.Version,
			healthChecks(embedder, responseCache))
	})

	return &Components{
		Config:  cfg,
		Logger:  log,
		Cache:   responseCache,
		Manager: manager,
		Server:  srv,
	}, nil
}

// healthChecks builds the readiness probes. The embedding sidecar is the
// only hard dependency; redis degrades.
func healthChecks(embedder embedding.Embedder, responseCache *cache.Cache) map[string]server.HealthChecker {
	return map[string]server.HealthChecker{
		"embedding": func() server.CheckResult {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			start := time.Now()
			if err := embedder.Health(ctx); err != nil {
				return server.CheckResult{
					Status:  server.HealthStatusUnhealthy,
					Message: err.Error(),
				}
			}
			return server.CheckResult{
				Status:  server.HealthStatusHealthy,
				Latency: time.Since(start).String(),
			}
		},
		"redis": func() server.CheckResult {
			if responseCache == nil {
				return server.CheckResult{
					Status:  server.HealthStatusDegraded,
					Message: "cache disabled",
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			start := time.Now()
			if err := responseCache.Ping(ctx); err != nil {
				return server.CheckResult{
					Status:  server.HealthStatusDegraded,
					Message: err.Error(),
				}
			}
			return server.CheckResult{
				Status:  server.HealthStatusHealthy,
				Latency: time.Since(start).String(),
			}
		},
	}
}
