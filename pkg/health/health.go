package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/woodsense/s3i-gateway/pkg/postgres"
	"github.com/woodsense/s3i-gateway/pkg/redis"
)

// DrainStatus exposes the agent's last recorded drain outcome.
type DrainStatus interface {
	// LastDrain returns the stored status fields, empty when no drain
	// has been recorded yet.
	LastDrain(ctx context.Context) (map[string]string, error)

	// Heartbeat returns the timestamp of the agent's last status write.
	Heartbeat(ctx context.Context) (string, error)
}

// Checker provides health check functionality for agents
type Checker struct {
	redis    redis.Client
	postgres postgres.Client
	drain    DrainStatus
	logger   *slog.Logger
}

// NewChecker creates a new health checker with the given dependencies.
// drain may be nil when status reporting is disabled.
func NewChecker(redisClient redis.Client, postgresClient postgres.Client, drain DrainStatus, logger *slog.Logger) *Checker {
	return &Checker{
		redis:    redisClient,
		postgres: postgresClient,
		drain:    drain,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  *Services         `json:"services,omitempty"`
	Drain     map[string]string `json:"drain,omitempty"`
	Heartbeat string            `json:"heartbeat,omitempty"`
}

// Services represents the status of external dependencies
type Services struct {
	Redis    string                 `json:"redis"`
	Postgres *postgres.HealthStatus `json:"postgres,omitempty"`
}

// HandlerFunc returns an HTTP handler function for health checks.
// Returns 200 if the process is alive without checking dependencies, which
// keeps the probe fast for the scheduler.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			h.logger.Error("Failed to encode health response", "error", err)
		}
	}
}

// DetailedHandlerFunc returns a handler that checks all dependencies and
// reports the last drain outcome alongside them.
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := &Services{
			Redis: "unknown",
		}

		status := "healthy"
		statusCode := http.StatusOK

		if h.redis != nil {
			if err := h.redis.Ping(ctx); err != nil {
				services.Redis = "disconnected"
			} else {
				services.Redis = "connected"
			}
		}

		if h.postgres != nil {
			pgStatus, err := h.postgres.HealthCheck(ctx)
			if err != nil {
				h.logger.Error("Postgres health check failed", "error", err)
			} else {
				services.Postgres = pgStatus
			}
		}

		if services.Redis == "disconnected" ||
			services.Postgres == nil || !services.Postgres.Connected {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		}

		if h.drain != nil {
			if drain, err := h.drain.LastDrain(ctx); err != nil {
				h.logger.Error("Failed to read drain status", "error", err)
			} else {
				response.Drain = drain
			}
			if heartbeat, err := h.drain.Heartbeat(ctx); err == nil {
				response.Heartbeat = heartbeat
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			h.logger.Error("Failed to encode health response", "error", err)
		}
	}
}
