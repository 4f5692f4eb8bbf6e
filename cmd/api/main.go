package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fieldserve/scheduling-backend/internal/api/rest"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/cache"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/database"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/events"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/providers"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/repository"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/telemetry"
	"github.com/fieldserve/scheduling-backend/internal/service/availability"
	"github.com/fieldserve/scheduling-backend/internal/service/booking"
	"github.com/fieldserve/scheduling-backend/internal/service/conflict"
	"github.com/fieldserve/scheduling-backend/internal/service/policy"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to set up infrastructure logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()
	provider, err := telemetry.InitTracing(ctx, "scheduling-api", cfg.Version, cfg.Environment, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	pool, err := database.NewConnectionPool(&cfg.Database, zapLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	db := pool.DB()

	redisCache, err := cache.NewRedisCache(&cfg.Redis, zapLogger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	calendar := repository.NewCalendarRepository(db)
	professionals := repository.NewProfessionalRepository(db)
	jobs := repository.NewJobRepository(db)

	pol := policy.New(cfg.Scheduling)
	travel := providers.NewGeoClient(cfg.Providers.Geo, zapLogger)
	weather := providers.NewWeatherClient(cfg.Providers.Weather, zapLogger)

	engine := availability.NewEngine(calendar, travel, pol, logger)
	slotCache := cache.NewAvailabilityCache(engine, redisCache, cfg.Scheduling.AvailabilityCacheTTL, zapLogger)

	publisher := events.NewPublisher(256, zapLogger)
	defer publisher.Close()

	bookings := booking.NewService(booking.Deps{
		Calendar:      calendar,
		Professionals: professionals,
		Finder:        slotCache,
		Weather:       weather,
		Jobs:          jobs,
		Events:        publisher,
		Locker:        cache.NewSlotHoldLocker(redisCache, zapLogger),
		Policy:        pol,
		Detector:      conflict.NewDetector(cfg.Scheduling.Buffer(), nil),
		Metrics:       prometheusCollector{},
		Cache:         slotCache,
		Logger:        logger,
	})

	metricsServer := startMetricsServer(cfg.Server.MetricsPort)
	defer metricsServer.Close()

	handler := rest.NewHandler(bookings, calendar, logger, cfg.Version)
	server := rest.NewServer(cfg.Server, handler, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
