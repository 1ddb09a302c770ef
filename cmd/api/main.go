package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Dan9191/auth-service/internal/audit"
	"github.com/Dan9191/auth-service/internal/auth"
	"github.com/Dan9191/auth-service/internal/config"
	"github.com/Dan9191/auth-service/internal/handler"
	"github.com/Dan9191/auth-service/internal/repository"
	"github.com/Dan9191/auth-service/internal/service"
	"github.com/Dan9191/auth-service/internal/utils/email"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize layers
	method, err := auth.SigningMethod(cfg.Algorithm)
	if err != nil {
		logger.Fatalf("Failed to configure token signing: %v", err)
	}
	issuer := auth.NewTokenIssuer(
		[]byte(cfg.SecretKey),
		method,
		time.Duration(cfg.AccessTokenExpireMinutes)*time.Minute,
	)
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, issuer, logger, cfg)
	if cfg.SMTPConfigured() {
		svc = svc.WithMailer(email.NewSender(cfg, logger))
	}
	h := handler.NewHandler(svc, logger)

	// Bootstrap the first superuser
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.EnsureSuperuser(ctx); err != nil {
		cancel()
		logger.Fatalf("Failed to bootstrap superuser: %v", err)
	}
	cancel()

	// Setup router
	r := handler.NewRouter(h, issuer, repo, logger)

	// Schedule the account audit job
	c := cron.New()
	if _, err := c.AddJob(cfg.AuditSchedule, audit.NewJob(repo, logger)); err != nil {
		logger.Fatalf("Failed to schedule audit job: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
