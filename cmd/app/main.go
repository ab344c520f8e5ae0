package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"karyalay/internal/auth"
	"karyalay/internal/availability"
	"karyalay/internal/booking"
	"karyalay/internal/config"
	"karyalay/internal/db"
	"karyalay/internal/email"
	"karyalay/internal/logger"
	"karyalay/internal/otp"
	"karyalay/internal/scheduler"
	"karyalay/internal/server"
	"karyalay/internal/session"
	"karyalay/internal/user"
	"karyalay/internal/venue"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init()
	logger.Info("Starting Karyalay application", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Connecting to database...")
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
	}
	logger.Info("Redis connected")

	loc := cfg.Location()

	emailService := email.New(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}, rdb)
	go emailService.Start(ctx)

	sessions := session.NewRegistry(rdb, auth.RefreshTokenTTL)
	codes := otp.NewStore(rdb)

	userRepo := user.NewRepository(database)
	userService := user.NewService(userRepo, sessions, codes, emailService, cfg.JWTSecret)

	venueService := venue.NewService(venue.NewRepository(database))

	bookingRepo := booking.NewRepository(database)
	bookingService := booking.NewService(bookingRepo, venueService, userRepo, emailService, loc)

	availabilityService := availability.NewService(bookingRepo, venueService)

	jobs := scheduler.New(loc)
	if err := jobs.RegisterBookingJobs(bookingService, cfg.ReminderCron, cfg.CompletionCron); err != nil {
		logger.Fatal("Failed to schedule booking jobs", "error", err)
	}
	if err := jobs.RegisterQueueGauge(emailService); err != nil {
		logger.Fatal("Failed to schedule queue gauge", "error", err)
	}
	jobs.Start()

	srv := server.New(cfg, server.Handlers{
		User:         user.NewHandler(userService),
		Venue:        venue.NewHandler(venueService),
		Booking:      booking.NewHandler(bookingService),
		Availability: availability.NewHandler(availabilityService, loc),
	}, sessions,
		server.Check{Name: "postgres", Ping: database.PingContext},
		server.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Errorf("Error stopping scheduler: %v", err)
	}
	cancel()

	logger.Info("Server stopped")
}
