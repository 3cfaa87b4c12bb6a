package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/infrastructure/di"
	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/internal/interface/router"
	"github.com/jborjar/paquetes/internal/interface/server"
	"github.com/jborjar/paquetes/pkg/config"
	"github.com/jborjar/paquetes/pkg/logger"
)

func main() {
	// Logger setup（設定読み込み前はデフォルト）
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	if err := logger.Setup(logCfg); err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}

	// Initialize DI Container
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	handlers := di.NewHandlers(container)
	middlewares := di.NewMiddlewares(container)

	// Setup Server
	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Server.Port
	serverConfig.Debug = cfg.Server.Debug
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	serverConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	serverConfig.TrustProxy = cfg.Server.TrustProxy
	srv := server.NewServer(serverConfig)
	e := srv.Echo()

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	securityConfig := middleware.DefaultSecurityHeadersConfig()
	securityConfig.EnableHSTS = cfg.Security.EnableHSTS
	e.Use(middleware.SecurityHeadersWithConfig(securityConfig))
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.Security.CORSOrigins
	e.Use(middleware.CORSWithConfig(corsConfig))
	if cfg.Security.EnableCSRF {
		e.Use(middleware.CSRF(middleware.CSRFConfig{
			SessionCookieName: cfg.Session.CookieName,
			Skipper: func(c echo.Context) bool {
				return c.Path() == router.LoginPath
			},
		}))
	}

	// Setup Router
	router.NewRouter(e, handlers, middlewares).Setup()

	// Start background workers
	workerMgr := di.NewWorkerManager(container, handlers.Health)
	workerMgr.Start()

	// Start server
	slog.Info("starting server",
		"port", cfg.Server.Port,
		"session_backend", cfg.Session.Backend,
		"account_source", cfg.Auth.AccountSource,
		"session_ttl", cfg.Session.TTL.String(),
	)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	workerMgr.Shutdown(10 * time.Second)

	if err := srv.Shutdown(context.Background()); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
