package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/config"
	dbRedis "github.com/maknoon-cloud/qurandex/internal/db/redis"
	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/boost"
	logpkg "github.com/maknoon-cloud/qurandex/internal/logger"
	"github.com/maknoon-cloud/qurandex/internal/metrics"
	documentrepo "github.com/maknoon-cloud/qurandex/internal/repository/document"
	"github.com/maknoon-cloud/qurandex/internal/repository/embcache"
	searchrepo "github.com/maknoon-cloud/qurandex/internal/repository/search"
	chiTransport "github.com/maknoon-cloud/qurandex/internal/transport/chi"
	openaiTransport "github.com/maknoon-cloud/qurandex/internal/transport/openai"
	embeddinguc "github.com/maknoon-cloud/qurandex/internal/usecase/embedding"
	healthuc "github.com/maknoon-cloud/qurandex/internal/usecase/health"
	indexuc "github.com/maknoon-cloud/qurandex/internal/usecase/index"
	searchuc "github.com/maknoon-cloud/qurandex/internal/usecase/search"
	"github.com/maknoon-cloud/qurandex/internal/version"
)

const embeddingProvider = "openai"

func main() {
	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting qurandex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	domain.KeyPrefix = cfg.Storage.KeyPrefix

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register Prometheus metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Embedder chain: OpenAI -> RateLimited -> Cached -> Instrumented
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   embeddingProvider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	limited := embeddinguc.NewRateLimitedEmbedder(base, cfg.Embedding.RateRPS, cfg.Embedding.RateBurst)
	cached := embcache.New(limited, store, metrics.EmbeddingCacheTotal, logger)
	embedder := embeddinguc.NewInstrumentedEmbedder(cached, embeddingProvider, cfg.Embedding.Model, logger)

	logger.Info("Embedder created",
		zap.String("provider", embeddingProvider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	var reranker domain.Reranker
	if cfg.Reranker.Enabled {
		reranker = openaiTransport.NewReranker(&openaiTransport.RerankerConfig{
			APIKey:   cfg.Reranker.APIKey,
			BaseURL:  cfg.Reranker.BaseURL,
			Model:    cfg.Reranker.Model,
			Provider: embeddingProvider,
			Timeout:  time.Duration(cfg.Reranker.TimeoutSec) * time.Second,
			Logger:   logger,
		})
		logger.Info("Reranker enabled", zap.String("model", cfg.Reranker.Model))
	}

	docRepo := documentrepo.New(store).WithHNSW(documentrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	searchRepo := searchrepo.New(store)

	indexSvc := indexuc.New(docRepo, embedder, cfg.Embedding.Dimensions, logger).
		WithMaxBatchSize(cfg.Index.MaxBatchSize).
		WithConcurrency(cfg.Index.Concurrency)

	if err := indexSvc.EnsureIndex(ctx, cfg.Index.MetaTypes); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}
	logger.Info("Search index ready", zap.Strings("meta_types", cfg.Index.MetaTypes))

	// Probe the provider once: a dimension mismatch is a configuration
	// error and must not surface per-request. An unreachable provider is
	// tolerated since search degrades to keyword retrieval.
	probeCtx, cancelProbe := context.WithTimeout(ctx, time.Duration(cfg.Embedding.TimeoutSec)*time.Second)
	if _, err := embedder.Embed(probeCtx, "startup dimension probe"); err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			cancelProbe()
			logger.Fatal("Embedding dimensions mismatch", zap.Error(err))
		}
		logger.Warn("Embedding provider probe failed, search will degrade until it recovers", zap.Error(err))
	}
	cancelProbe()

	weights := boost.Weights{
		PerMatch:        cfg.Search.Boost.PerMatch,
		Featured:        cfg.Search.Boost.Featured,
		HighRating:      cfg.Search.Boost.HighRating,
		RatingThreshold: cfg.Search.Boost.RatingThreshold,
	}
	searchSvc := searchuc.New(searchRepo, embedder, reranker, boost.New(weights), logger).
		WithRetrievalMultiplier(cfg.Search.RetrievalMultiplier)

	healthSvc := healthuc.New(store, base, logger)

	server := chiTransport.NewServer(searchSvc, indexSvc, healthSvc, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
