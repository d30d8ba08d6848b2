package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/foodlink-service/internal/auth"
	"github.com/Dan9191/foodlink-service/internal/config"
	"github.com/Dan9191/foodlink-service/internal/handler"
	"github.com/Dan9191/foodlink-service/internal/middleware"
	"github.com/Dan9191/foodlink-service/internal/repository"
	"github.com/Dan9191/foodlink-service/internal/scheduler"
	"github.com/Dan9191/foodlink-service/internal/service"
	"github.com/Dan9191/foodlink-service/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	var store service.Store
	switch cfg.Store {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store = repository.NewMemoryRepository()
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		if err := repository.Migrate(ctx, db, logger); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		store = repository.NewRepository(db)
	}

	// Initialize layers
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	var notifier service.ClaimNotifier
	if cfg.MailEnabled() {
		notifier = email.NewSender(cfg, logger)
	}
	svc := service.NewService(store, logger, tokens, notifier)
	defer svc.Close()
	h := handler.NewHandler(svc, logger)

	reporter, err := scheduler.NewStatsReporter(svc, logger, cfg.StatsCron)
	if err != nil {
		logger.Fatalf("Failed to schedule stats reporter: %v", err)
	}
	reporter.Start()
	defer reporter.Stop()

	router := handler.NewRouter(h,
		middleware.AuthMiddleware(tokens, logger),
		middleware.RequestLogger(logger),
		cfg.FrontendURLs,
	)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
