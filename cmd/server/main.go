// Package main runs the task management HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgtasks/backend/config"
	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/audit"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/middleware"
	"github.com/orgtasks/backend/internal/organizations"
	"github.com/orgtasks/backend/internal/tasks"
	"github.com/orgtasks/backend/pkg/database"
	"github.com/orgtasks/backend/pkg/metrics"
	"github.com/orgtasks/backend/pkg/queue"
	"github.com/orgtasks/backend/pkg/redis"
	"github.com/orgtasks/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	tokens, err := auth.NewTokenService(cfg.JWT.Secret,
		auth.WithAccessTTL(cfg.JWT.AccessTTL),
		auth.WithRefreshTTL(cfg.JWT.RefreshTTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}
	engine := access.NewEngine(access.DefaultPermissionTable())
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and users
	userRepo := auth.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	gateway := auth.NewGateway(userRepo, tokens, auth.NewRedisRevocationStore(rdb.Client), logger)
	authHandler := auth.NewHandler(gateway, userRepo, orgRepo, engine,
		auth.CookieOptions{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure}, logger)

	orgHandler := organizations.NewHandler(orgRepo, engine, logger)
	taskHandler := tasks.NewHandler(tasks.NewRepository(pool), userRepo, orgRepo, engine, logger)
	auditHandler := audit.NewHandler(audit.NewRepository(pool), orgRepo, engine, logger)

	httpMetrics := metrics.New()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpMetrics.Middleware())
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.Logger(logger))

	router.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	// Health
	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := rdb.Healthy(hctx); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public; refresh and logout authenticate with the refresh cookie)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.DELETE("/refresh", authHandler.Logout)
	}

	// Protected API (access token required)
	api := router.Group("")
	api.Use(middleware.Authenticate(tokens))
	{
		api.GET("/auth/me", authHandler.Me)
		api.GET("/users", middleware.RequirePermission(engine, access.PermManageUsers), authHandler.ListUsers)

		api.GET("/organizations", orgHandler.List)
		api.GET("/organizations/:id", orgHandler.Get)

		api.POST("/tasks", middleware.RequirePermission(engine, access.PermCreateTask),
			audit.Record(jobQueue, access.PermCreateTask, "task", logger), taskHandler.Create)
		api.GET("/tasks", middleware.RequirePermission(engine, access.PermReadTask),
			audit.Record(jobQueue, access.PermReadTask, "task", logger), taskHandler.List)
		api.PUT("/tasks/:id", middleware.RequirePermission(engine, access.PermUpdateTask),
			audit.Record(jobQueue, access.PermUpdateTask, "task", logger), taskHandler.Update)
		api.DELETE("/tasks/:id", middleware.RequirePermission(engine, access.PermDeleteTask),
			audit.Record(jobQueue, access.PermDeleteTask, "task", logger), taskHandler.Delete)

		api.GET("/audit-log", middleware.RequirePermission(engine, access.PermViewAuditLog), auditHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
