package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"circlehub/database"
	"circlehub/internal/config"
	"circlehub/internal/microservices/http-api/handler"
	"circlehub/internal/microservices/http-api/middleware"
	"circlehub/internal/microservices/http-api/repository"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("could not load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	// the leaderboard is recomputed from postgres when redis is unavailable
	cache, err := repository.NewLeaderboardCache(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.CacheDuration())
	if err != nil {
		logger.Warn("leaderboard cache disabled", "error", err)
	}
	defer cache.Close()

	var (
		svcMetrics  *service.Metrics
		httpMetrics *middleware.HTTPMetrics
	)
	if cfg.PrometheusEnabled {
		svcMetrics = service.NewMetrics(prometheus.DefaultRegisterer)
		httpMetrics = middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx)

	router := newRouter(cfg, logger, db, cache, svcMetrics, httpMetrics, limiter)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		gorillaHandlers.ExposedHeaders([]string{middleware.RequestIDHeader, "Content-Disposition"}),
		gorillaHandlers.AllowCredentials(),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      corsHandler(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr, "env", cfg.GoEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newRouter(
	cfg *config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	cache *repository.LeaderboardCache,
	svcMetrics *service.Metrics,
	httpMetrics *middleware.HTTPMetrics,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store := repository.NewStore(db)
	books := repository.NewBookRepo(db)
	library := repository.NewLibraryRepository(db)
	verifier := service.NewTokenVerifier(cfg.JWTSecret)

	circles := handler.NewCircleHandler(
		service.NewCircleService(store, cache, logger, svcMetrics, cfg.InviteCodeAttempts), cfg.RequestTimeout)
	challenges := handler.NewChallengeHandler(
		service.NewChallengeService(store, books, library, logger), cfg.RequestTimeout)
	progress := handler.NewProgressHandler(
		service.NewProgressService(store, books, library, cache, logger, svcMetrics), cfg.RequestTimeout)
	leaderboard := handler.NewLeaderboardHandler(
		service.NewLeaderboardService(store, cache, logger), cfg.RequestTimeout)
	activity := handler.NewActivityHandler(service.NewActivityService(store), cfg.RequestTimeout)
	streaks := handler.NewStreakHandler(service.NewStreakService(library), cfg.RequestTimeout)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))
	if httpMetrics != nil {
		r.Use(httpMetrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(verifier)

	circleGroup := r.Group("/circles", auth, limiter.Handler())
	circles.RegisterRoutes(circleGroup)
	challenges.RegisterRoutes(circleGroup)
	progress.RegisterRoutes(circleGroup)
	leaderboard.RegisterRoutes(circleGroup)
	activity.RegisterRoutes(circleGroup)

	statsGroup := r.Group("/stats", auth)
	streaks.RegisterRoutes(statsGroup)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return r
}
