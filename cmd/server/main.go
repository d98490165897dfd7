package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"lovealarm/internal/app"
	"lovealarm/internal/config"
	"lovealarm/internal/handler"
	"lovealarm/internal/matcher"
	internalRedis "lovealarm/internal/redis"
	"lovealarm/internal/repository/postgres"
	"lovealarm/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("Connected to Redis")
	} else {
		log.Println("Redis disabled, scanning signals from PostgreSQL")
	}

	nc, err := app.NewNATSConn(cfg.NATS)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	if nc != nil {
		defer nc.Drain()
		log.Printf("Connected to NATS at %s", nc.ConnectedUrl())
	} else {
		log.Println("NATS disabled, love alarms will only be logged")
	}

	server, err := wireServer(db, redisClient, nc, nrApp, cfg)
	if err != nil {
		log.Fatalf("failed to wire server: %v", err)
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nc *nats.Conn, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, error) {
	m, err := matcher.New(matcher.Config{
		NearbyRadiusMeters: cfg.Matching.NearbyRadiusMeters,
		LoveRadiusMeters:   cfg.Matching.LoveRadiusMeters,
	})
	if err != nil {
		return nil, err
	}

	// Redis-backed collaborators stay nil interfaces when Redis is disabled.
	var signalIndex internalRedis.SignalIndexInterface
	var alarmGate internalRedis.AlarmGateInterface
	if redisClient != nil {
		signalIndex = internalRedis.NewSignalIndex(redisClient)
		alarmGate = internalRedis.NewAlarmGate(redisClient)
	}

	var publisher service.Publisher
	if nc != nil {
		publisher = nc
	}

	userRepo := postgres.NewUserRepository(db)
	interactionRepo := postgres.NewInteractionRepository(db)

	notificationService := service.NewNotificationService(publisher, alarmGate, cfg.Matching.AlarmCooldown)
	userService := service.NewUserService(userRepo, signalIndex)
	signalService := service.NewSignalService(userRepo, signalIndex, m, cfg.Matching.SignalTTL)
	loveService := service.NewLoveService(userRepo, interactionRepo, m, notificationService)

	router := app.NewRouter(app.RouterDeps{
		UserHandler:    handler.NewUserHandler(userService),
		SignalHandler:  handler.NewSignalHandler(signalService),
		LoveHandler:    handler.NewLoveHandler(loveService),
		AlarmHandler:   handler.NewAlarmHandler(nc, cfg.Server.AllowedOrigins),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
