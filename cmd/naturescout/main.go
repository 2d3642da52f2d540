package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/config"
	dbRedis "github.com/wildpath/naturescout/internal/db/redis"
	logpkg "github.com/wildpath/naturescout/internal/logger"
	"github.com/wildpath/naturescout/internal/metrics"
	cacherepo "github.com/wildpath/naturescout/internal/repository/cache"
	"github.com/wildpath/naturescout/internal/retry"
	chiTransport "github.com/wildpath/naturescout/internal/transport/chi"
	openaiExt "github.com/wildpath/naturescout/internal/transport/openai"
	"github.com/wildpath/naturescout/internal/transport/places"
	"github.com/wildpath/naturescout/internal/transport/reddit"
	healthuc "github.com/wildpath/naturescout/internal/usecase/health"
	lookupuc "github.com/wildpath/naturescout/internal/usecase/lookup"
	pipelineuc "github.com/wildpath/naturescout/internal/usecase/pipeline"
	"github.com/wildpath/naturescout/internal/usecase/rank"
	verifyuc "github.com/wildpath/naturescout/internal/usecase/verify"
	"github.com/wildpath/naturescout/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting naturescout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the cache store to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	cache := cacherepo.New(store, cfg.Storage.KeyPrefix)
	if err := cache.EnsureMetadata(ctx); err != nil {
		logger.Fatal("Failed to write cache metadata", zap.Error(err))
	}

	source := reddit.NewClient(reddit.Config{
		BaseURL:       cfg.Source.BaseURL,
		UserAgent:     cfg.Source.UserAgent,
		CommentLimit:  cfg.Source.CommentLimit,
		MinCommentLen: cfg.Source.MinCommentLen,
		Timeout:       time.Duration(cfg.Source.TimeoutSec) * time.Second,
		Logger:        logger,
	})

	extractorCfg := &openaiExt.Config{
		APIKey:    cfg.Extraction.APIKey,
		BaseURL:   cfg.Extraction.BaseURL,
		Model:     cfg.Extraction.Model,
		MaxTokens: cfg.Extraction.MaxTokens,
		Logger:    logger,
	}
	extractor := openaiExt.NewExtractor(extractorCfg)
	summarizer := openaiExt.NewSummarizer(extractorCfg, cfg.Extraction.SummaryModel)
	logger.Info("Extraction provider created",
		zap.String("model", cfg.Extraction.Model),
		zap.String("summary_model", cfg.Extraction.SummaryModel),
	)

	placesClient := places.NewClient(places.Config{
		APIKey:        cfg.Places.APIKey,
		BaseURL:       cfg.Places.BaseURL,
		PhotoMaxWidth: cfg.Places.PhotoMaxWidthPx,
		MaxPhotos:     cfg.Places.MaxPhotos,
		Timeout:       time.Duration(cfg.Places.TimeoutSec) * time.Second,
		Logger:        logger,
	})

	verifier := verifyuc.New(placesClient, verifyuc.Options{
		Mode:        verifyuc.LocalityMode(cfg.Places.LocalityMatch),
		RadiusKm:    cfg.Places.LocalityRadiusKm,
		TopK:        cfg.Pipeline.TopK,
		Concurrency: cfg.Pipeline.VerifyConcurrency,
		Retry:       retry.DefaultPolicy(cfg.Places.RetryAttempts),
	}, logger)

	pipelineSvc := pipelineuc.New(source, extractor, verifier, cache, pipelineuc.Options{
		Weights: rank.Weights{
			Community: cfg.Pipeline.CommunityWeight,
			Rating:    cfg.Pipeline.RatingWeight,
		},
		ExtractConcurrency: cfg.Pipeline.ExtractionConcurrency,
		RunTimeout:         time.Duration(cfg.Pipeline.RunTimeoutSec) * time.Second,
		SourceRetry:        retry.DefaultPolicy(cfg.Source.RetryAttempts),
		ExtractRetry:       retry.DefaultPolicy(cfg.Extraction.RetryAttempts),
	}, logger)

	lookupSvc := lookupuc.New(cache, summarizer, logger)
	healthSvc := healthuc.New(store, extractor)

	server := chiTransport.NewServer(pipelineSvc, lookupSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
