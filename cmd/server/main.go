package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/api/handler"
	"github.com/limaJavier/smartclassroom/internal/api/router"
	"github.com/limaJavier/smartclassroom/internal/config"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/internal/store"
	applogger "github.com/limaJavier/smartclassroom/pkg/logger"
)

func main() {
	configPathPtr := flag.String("config", "", "Path to the configuration file; if empty, ./config.yaml and ./config/config.yaml are tried")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPathPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := applogger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// Open storage
	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("cannot open store", zap.Error(err))
	}
	defer st.Close()

	if err := handler.EnsureUploadDir(cfg.Upload); err != nil {
		logger.Fatal("cannot prepare upload directory", zap.Error(err))
	}

	// Wire services and handlers
	svc := service.NewService(st, service.Options{
		Rules:       cfg.Timetable.Rules(),
		SessionTTL:  cfg.Session.TTL,
		MaxFileSize: cfg.Upload.MaxFileSize,
		Logger:      logger,
	})
	bootstrapAdmin(cfg.Admin, svc.User, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := router.Setup(cfg, handler.NewHandler(cfg, svc, logger), svc.User, logger)

	// Serve with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Store.Driver == "redis" {
		return store.NewRedisStore(store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
	}
	logger.Warn("using the in-memory store; data is lost on restart")
	return store.NewMemoryStore(), nil
}

func bootstrapAdmin(admin config.AdminConfig, users service.UserService, logger *zap.Logger) {
	if admin.Username == "" {
		return
	}
	user, created, err := users.Bootstrap(context.Background(), service.NewUser{
		Username: admin.Username,
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
	})
	if err != nil {
		logger.Fatal("cannot create the initial administrator", zap.Error(err))
	}
	if created {
		logger.Info("initial administrator created", zap.String("username", user.Username))
	}
}
