package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodie-delivery/internal/api"
	"foodie-delivery/internal/config"
	"foodie-delivery/internal/events"
	"foodie-delivery/internal/metrics"
	"foodie-delivery/internal/modules/assignment"
	"foodie-delivery/internal/modules/delivery"
	"foodie-delivery/internal/realtime"
	"foodie-delivery/internal/riders"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "foodie-delivery").Logger()

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	e := echo.New()
	e.HideBanner = true

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to parse database configuration")
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create connection pool")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("unable to ping database")
	}
	logger.Info().Msg("connected to the database")

	// 4. --- Rider Position Store ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	locator := riders.NewRedisLocator(redisClient)

	// 5. --- Message Broker ---
	wmLogger := events.NewLoggerAdapter(logger)
	brokerCfg := events.DefaultBrokerConfig(cfg.NatsURL)

	natsPublisher, err := events.NewNATSPublisher(brokerCfg, wmLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create broker publisher")
	}
	defer natsPublisher.Close()

	natsSubscriber, err := events.NewNATSSubscriber(brokerCfg, wmLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create broker subscriber")
	}
	defer natsSubscriber.Close()

	publisher := events.NewPublisher(natsPublisher)

	// 6. --- Realtime Gateway ---
	hub := realtime.NewHub(logger)
	gateway := realtime.NewGateway(hub, logger)

	// 7. --- Dependency Injection (Wiring everything up) ---
	deliveryRepo := delivery.NewRepository(dbPool)
	deliveryService := delivery.NewService(deliveryRepo, hub, publisher, locator, logger)
	engine := assignment.NewEngine(deliveryRepo, locator, cfg.AssignmentRadiusKm, logger)
	deliveryHandler := delivery.NewHandler(deliveryService, engine)

	bridge := events.NewBridge(natsSubscriber, publisher, deliveryService, engine, logger)

	// 8. --- Routes ---
	health := func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	api.SetupRoutes(e, deliveryHandler, gateway, health, registry)

	// 9. --- Start consumers and server with graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := bridge.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("event bridge stopped")
			stop()
		}
	}()

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exiting")
}
