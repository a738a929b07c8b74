package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/woodsense/s3i-gateway/internal/camera"
	"github.com/woodsense/s3i-gateway/internal/fetcher"
	"github.com/woodsense/s3i-gateway/pkg/config"
	"github.com/woodsense/s3i-gateway/pkg/health"
	"github.com/woodsense/s3i-gateway/pkg/logging"
	"github.com/woodsense/s3i-gateway/pkg/mqtt"
	"github.com/woodsense/s3i-gateway/pkg/postgres"
	"github.com/woodsense/s3i-gateway/pkg/redis"
	"github.com/woodsense/s3i-gateway/pkg/s3i"
	"github.com/woodsense/s3i-gateway/pkg/secrets"
)

func main() {
	// Load configuration with hierarchy: defaults → file → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "fetch-agent"
	if err := cfg.LoadFromFile(os.Getenv("S3I_CONFIG_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration file error: %v\n", err)
		os.Exit(1)
	}
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// Thing credentials come from the secret store when present, so the
	// deployment does not have to put them into env or flags.
	resolveSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Starting S3I fetch agent",
		"service_name", cfg.ServiceName,
		"thing_id", cfg.ThingID,
		"broker_url", cfg.BrokerURL,
		"poll_interval_sec", cfg.PollIntervalSec,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Postgres image store
	pgClient := postgres.NewClient(cfg, logger)
	if err := pgClient.Connect(ctx); err != nil {
		logger.Error("Failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	store := camera.NewStorage(pgClient, cfg, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure image schema", "error", err)
		os.Exit(1)
	}
	if count, err := store.Count(ctx); err == nil {
		logger.Info("Image store ready", "stored_images", count)
	}

	// Redis drain status
	redisClient := redis.NewClient(cfg, logger)
	if err := redisClient.Ping(ctx); err != nil {
		logger.Error("Failed to ping redis", "error", err)
		os.Exit(1)
	}
	status := fetcher.NewStatusStore(redisClient, cfg.ThingID, cfg.ServiceName)

	// Optional MQTT trigger publishing
	var mqttClient mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, logger)
		if err := mqttClient.Connect(ctx); err != nil {
			logger.Warn("Failed to connect to MQTT, triggers disabled", "error", err)
			mqttClient = nil
		}
	}

	// S3I broker client; it creates and owns its HTTP transport. User
	// credentials switch the token requests to the password grant.
	thing := s3i.NewThing(cfg.ThingID, cfg.ThingSecret, cfg.MessageQueue, cfg.EventQueue, logger)
	var grant s3i.GrantStrategy
	if cfg.Username != "" || cfg.Password != "" {
		grant = s3i.PasswordGrant{
			ID:       cfg.ThingID,
			Secret:   cfg.ThingSecret,
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	broker := s3i.NewBroker(thing, grant, nil, cfg.BrokerURL, cfg.IdPURL, logger)
	defer broker.Close()

	fetcher.RegisterMetrics()
	agent := fetcher.NewAgent(broker, fetcher.NewStoreImageHandler(store), status, mqttClient, cfg, logger)

	healthChecker := health.NewChecker(redisClient, pgClient, status, logger)
	httpServer := startHTTPServer(ctx, cfg.HealthPort, healthChecker, agent, logger)

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Error closing redis connection", "error", err)
	}
	if err := pgClient.Disconnect(); err != nil {
		logger.Error("Error closing postgres connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}

	logger.Info("Fetch agent shutdown complete")
}

// resolveSecrets overrides thing credentials and queue addresses from the
// secret store (mounted files first, then environment).
func resolveSecrets(cfg *config.Config) {
	provider := secrets.Chain{
		secrets.FileProvider{Dir: "/run/secrets"},
		secrets.EnvProvider{},
	}

	cfg.ThingID = secrets.GetOrDefault(provider, secrets.ThingID, cfg.ThingID)
	cfg.ThingSecret = secrets.GetOrDefault(provider, secrets.ThingSecret, cfg.ThingSecret)
	cfg.MessageQueue = secrets.GetOrDefault(provider, secrets.MessageQueue, cfg.MessageQueue)
	cfg.EventQueue = secrets.GetOrDefault(provider, secrets.EventQueue, cfg.EventQueue)
}

// startHTTPServer serves health, metrics and the on-demand drain trigger.
func startHTTPServer(ctx context.Context, port int, checker *health.Checker, agent *fetcher.Agent, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())
	mux.Handle("/metrics", promhttp.Handler())

	// Launches a drain outside the request path, mirroring the platform's
	// "run this unit of work now" trigger.
	mux.HandleFunc("POST /api/drain", func(w http.ResponseWriter, r *http.Request) {
		go agent.RunOnce(ctx)
		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting HTTP server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	return server
}
