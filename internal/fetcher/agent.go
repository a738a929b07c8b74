package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/woodsense/s3i-gateway/internal/camera"
	"github.com/woodsense/s3i-gateway/pkg/config"
	"github.com/woodsense/s3i-gateway/pkg/mqtt"
	"github.com/woodsense/s3i-gateway/pkg/s3i"
)

// ImageHandler processes one image-classified message.
type ImageHandler interface {
	// HandleImage validates and persists the image carried by the
	// envelope, returning the decoded value for downstream use.
	HandleImage(ctx context.Context, env s3i.Envelope) (camera.ImageValue, error)
}

// Agent periodically drains the thing's S3I message queue, stores camera
// images, reports drain status to Redis and optionally announces stored
// images over MQTT. One drain runs at a time; a tick that arrives while a
// drain is still in flight is skipped.
type Agent struct {
	broker  Receiver
	handler ImageHandler
	status  *StatusStore
	mqtt    mqtt.Client
	cfg     *config.Config
	logger  *slog.Logger

	mu sync.Mutex
}

// NewAgent creates a new fetch agent. mqttClient and status may be nil when
// trigger publishing or status reporting is disabled.
func NewAgent(broker Receiver, handler ImageHandler, status *StatusStore, mqttClient mqtt.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		broker:  broker,
		handler: handler,
		status:  status,
		mqtt:    mqttClient,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start runs the drain loop until the context is cancelled. The queue is
// drained once immediately and then on every poll tick.
func (a *Agent) Start(ctx context.Context) error {
	interval := time.Duration(a.cfg.PollIntervalSec) * time.Second
	a.logger.Info("Starting fetch agent",
		"service_name", a.cfg.ServiceName,
		"poll_interval", interval)

	a.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.RunOnce(ctx)
		case <-ctx.Done():
			a.logger.Info("Fetch agent stopping")
			return nil
		}
	}
}

// RunOnce drains the queue once, outside the caller's request path when
// invoked from an HTTP trigger. Concurrent invocations for the same agent
// are collapsed: if a drain is already running the call returns immediately.
func (a *Agent) RunOnce(ctx context.Context) {
	if !a.mu.TryLock() {
		a.logger.Debug("Drain already in flight, skipping")
		return
	}
	defer a.mu.Unlock()

	start := time.Now()
	drainsTotal.Inc()

	result, err := a.Drain(ctx)
	messagesProcessed.Add(float64(result.Processed))
	messagesFailed.Add(float64(result.Failed))

	if err != nil {
		var procErrs s3i.ProcessingErrors
		if errors.As(err, &procErrs) {
			a.logger.Warn("Drain finished with message failures",
				"processed", result.Processed,
				"failed", len(procErrs),
				"duration", time.Since(start))
		} else {
			drainErrors.Inc()
			a.logger.Error("Drain aborted", "error", err)
		}
	} else {
		a.logger.Info("Drain complete",
			"processed", result.Processed,
			"duration", time.Since(start))
	}

	if a.status != nil {
		if serr := a.status.RecordDrain(ctx, result, err); serr != nil {
			a.logger.Error("Failed to record drain status", "error", serr)
		}
	}
}

// imageTrigger is the payload announced over MQTT after an image is stored.
type imageTrigger struct {
	Sender  string    `json:"sender"`
	Path    string    `json:"path"`
	TakenAt time.Time `json:"taken_at"`
}

// publishTrigger tells downstream consumers a new image has been stored.
// Publishing is best effort: the image is already safe in the database.
func (a *Agent) publishTrigger(sender string, img camera.ImageValue) {
	if a.mqtt == nil || !a.mqtt.IsConnected() {
		return
	}

	payload, err := json.Marshal(imageTrigger{
		Sender:  sender,
		Path:    img.Path,
		TakenAt: img.TakenAt,
	})
	if err != nil {
		a.logger.Error("Failed to build trigger payload", "error", err)
		return
	}

	topic := mqtt.ImageStoredTopic(sender)
	if err := a.mqtt.Publish(topic, 0, false, payload); err != nil {
		a.logger.Error("Failed to publish trigger", "topic", topic, "error", err)
		return
	}

	a.logger.Debug("Published trigger", "topic", topic)
}
