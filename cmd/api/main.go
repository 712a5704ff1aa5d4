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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealbrowser/internal/api"
	"mealbrowser/internal/cache"
	"mealbrowser/internal/config"
	"mealbrowser/internal/history"
	"mealbrowser/internal/logger"
	"mealbrowser/internal/meal"
	"mealbrowser/internal/metrics"
	"mealbrowser/internal/platform/mealdb"
	"mealbrowser/internal/session"
	"mealbrowser/internal/thumbnail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
	})
	if err != nil {
		panic(fmt.Errorf("error creating logger: %w", err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	deps := map[string]api.Pinger{}

	fetcher, closeCache, err := newFetcher(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	defer closeCache()

	store, closeStore, err := newHistoryStore(cfg, deps, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewRegistry(fetcher, cfg.Session.TTL, cfg.Session.MaxSessions, log)
	thumbs := thumbnail.NewResizer(cfg.Thumbnails.AllowedHosts, cfg.Thumbnails.DefaultWidth, cfg.MealDB.Timeout)

	handler := api.NewHandler(sessions, fetcher, store, thumbs, log)
	handler.SessionTTL = cfg.Session.TTL
	handler.Dependencies = deps

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, handler, log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, handler *api.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log), metrics.Middleware())

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

// newFetcher builds the TheMealDB client, wrapped in the configured cache.
// A redis backend is added to deps for readiness checks.
func newFetcher(ctx context.Context, cfg *config.Config, deps map[string]api.Pinger, log *zap.Logger) (meal.Fetcher, func(), error) {
	client := mealdb.NewClient(cfg.MealDB.BaseURL, cfg.MealDB.Timeout, log)

	switch cfg.Cache.Driver {
	case config.CacheMemory:
		log.Info("meal cache enabled",
			zap.String("driver", config.CacheMemory),
			zap.Duration("ttl", cfg.Cache.TTL),
			zap.Int("max_entries", cfg.Cache.MaxEntries))
		return cache.NewFetcher(client, cache.NewMemory(cfg.Cache.MaxEntries), cfg.Cache.TTL, log), func() {}, nil
	case config.CacheRedis:
		backend, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("error creating redis cache: %w", err)
		}
		log.Info("meal cache enabled", zap.String("driver", config.CacheRedis), zap.String("addr", cfg.Redis.Addr))
		deps["redis"] = backend
		return cache.NewFetcher(client, backend, cfg.Cache.TTL, log), func() { backend.Close() }, nil
	default:
		return client, func() {}, nil
	}
}

// newHistoryStore uses PostgreSQL when a database URL is configured.
func newHistoryStore(cfg *config.Config, deps map[string]api.Pinger, log *zap.Logger) (history.Store, func(), error) {
	if cfg.Database.URL == "" {
		log.Info("browse history kept in memory")
		return history.NewMemoryStore(history.MaxLimit), func() {}, nil
	}
	store, err := history.NewPostgresStore(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating postgresstore: %w", err)
	}
	deps["postgres"] = store
	return store, func() { store.Close() }, nil
}
