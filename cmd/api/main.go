package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ridepoolhq/ridepool-backend/api/routes"
	"github.com/ridepoolhq/ridepool-backend/internal/auth"
	"github.com/ridepoolhq/ridepool-backend/internal/participations"
	"github.com/ridepoolhq/ridepool-backend/internal/relay"
	"github.com/ridepoolhq/ridepool-backend/internal/rides"
	"github.com/ridepoolhq/ridepool-backend/internal/users"
	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	"github.com/ridepoolhq/ridepool-backend/pkg/db"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
	"github.com/ridepoolhq/ridepool-backend/pkg/metrics"
	"github.com/ridepoolhq/ridepool-backend/pkg/migrate"
	"github.com/ridepoolhq/ridepool-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	relayMetrics := metrics.NewRelayMetrics(registry)

	userRepo := users.NewRepository(dbClient.DB())
	rideRepo := rides.NewRepository(dbClient.DB())
	participationRepo := participations.NewRepository(dbClient.DB())

	usersService, err := users.NewService(users.ServiceParams{
		TxRunner:       dbClient,
		Reader:         userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ridesService, err := rides.NewService(rides.ServiceParams{
		TxRunner: dbClient,
		Reader:   rideRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rides service", err)
		os.Exit(1)
	}

	participationsService, err := participations.NewService(participations.ServiceParams{
		Repo:  participationRepo,
		Rides: rideRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create participations service", err)
		os.Exit(1)
	}

	hub, err := relay.NewHub(relay.HubParams{
		Config:  cfg.Relay,
		Logger:  logg,
		Metrics: relayMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create relay hub", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			httpMetrics,
			registry,
			userRepo,
			usersService,
			authService,
			ridesService,
			participationsService,
			hub,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
