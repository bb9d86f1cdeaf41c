package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"kickgym/internal/broker"
	"kickgym/internal/config"
	"kickgym/internal/db"
	"kickgym/internal/email"
	"kickgym/internal/logger"
	"kickgym/internal/server"
	"kickgym/internal/telemetry"
)

// @title KickGym API
// @version 1.0
// @description Membership credits, check-in, reservations and events for a gym.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting KickGym", "env", cfg.AppEnv, "timezone", cfg.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "kickgym", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("Failed to set up tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	publisher := broker.New(cfg.KafkaBrokers, cfg.AttendanceTopic)
	defer publisher.Close()

	emailService := email.New(email.Config{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
		Location: cfg.Location(),
	}, cfg.RedisAddr)
	defer emailService.Close()

	srv := server.New(database, cfg, emailService, publisher)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server starting on port %s", cfg.Port)
		return srv.Start()
	})
	g.Go(func() error {
		return emailService.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Error during server shutdown: %v", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Errorf("Error flushing traces: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
