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

	"github.com/kailas-cloud/userdex/internal/config"
	logpkg "github.com/kailas-cloud/userdex/internal/logger"
	"github.com/kailas-cloud/userdex/internal/metrics"
	"github.com/kailas-cloud/userdex/internal/repository/userindex"
	"github.com/kailas-cloud/userdex/internal/repository/userstore"
	chiTransport "github.com/kailas-cloud/userdex/internal/transport/chi"
	searchuc "github.com/kailas-cloud/userdex/internal/usecase/search"
	useruc "github.com/kailas-cloud/userdex/internal/usecase/user"
	"github.com/kailas-cloud/userdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting userdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_path", cfg.Storage.Path),
		zap.Bool("index_enabled", cfg.Index.Enabled),
	)

	store, err := userstore.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("Failed to open user store", zap.Error(err))
	}
	defer store.Close()

	metrics.RegisterSearchMetrics()

	// The secondary index is a soft dependency: a failed handshake only
	// disables the secondary path, it never stops the server.
	index := connectIndex(cfg.Index, logger)
	if index != nil {
		defer index.Close()
	}

	searchSvc := searchuc.New(store, logger).
		WithSecondaryTimeout(time.Duration(cfg.Index.SearchTimeoutSec) * time.Second)
	userSvc := useruc.New(store, logger).
		WithSyncTimeout(time.Duration(cfg.Index.SyncTimeoutSec) * time.Second)
	if index != nil {
		searchSvc.WithSecondary(index)
		userSvc.WithSyncer(index)
	}

	server := chiTransport.NewServer(searchSvc, userSvc, store, logger).
		WithPageSizes(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

	// Let in-flight index mirroring finish before the process exits.
	userSvc.WaitForSync()

	logger.Info("Server stopped gracefully")
}

// connectIndex creates the secondary index client and runs the startup
// handshake. Returns nil when the index is disabled or unreachable.
func connectIndex(cfg config.IndexConfig, logger *zap.Logger) *userindex.Index {
	if !cfg.Enabled {
		logger.Info("Secondary index disabled, all searches use the primary store")
		return nil
	}

	index, err := userindex.New(userindex.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Failed to create index client, continuing without it", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), time.Duration(cfg.HandshakeTimeoutSec)*time.Second)
	defer cancel()

	if err := index.Handshake(ctx); err != nil {
		logger.Warn("Index handshake failed, continuing without it", zap.Error(err))
		index.Close()
		return nil
	}

	logger.Info("Secondary index ready", zap.Strings("addrs", cfg.Addrs))
	return index
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
					_ = json.NewEncoder(w).Encode(map[string]any{
						"EC": -1,
						"EM": "internal error",
						"DT": nil,
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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
