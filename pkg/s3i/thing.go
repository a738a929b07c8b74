package s3i

import (
	"fmt"
	"log/slog"
)

// Thing is one identity registered with the S3I platform: its credentials
// and the pair of queues the broker maintains for it. Immutable after
// construction.
type Thing struct {
	ID           string
	Secret       string
	MessageQueue string
	EventQueue   string
}

// NewThing builds a Thing, deriving the queue addresses from the id when
// they are not supplied. Derivation is logged as a warning: it usually means
// the deployment configuration is incomplete, not that anything failed.
func NewThing(id, secret, messageQueue, eventQueue string, logger *slog.Logger) Thing {
	if logger == nil {
		logger = slog.Default()
	}
	if messageQueue == "" {
		messageQueue = fmt.Sprintf("s3ibs://%s", id)
		logger.Warn("No message queue provided, generated default", "message_queue", messageQueue)
	}
	if eventQueue == "" {
		eventQueue = fmt.Sprintf("s3ib://%s/event", id)
		logger.Warn("No event queue provided, generated default", "event_queue", eventQueue)
	}
	return Thing{
		ID:           id,
		Secret:       secret,
		MessageQueue: messageQueue,
		EventQueue:   eventQueue,
	}
}
