package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/woodsense/s3i-gateway/pkg/redis"
)

// statusTTL bounds how long drain status survives after the agent stops.
const statusTTL = 24 * time.Hour

// StatusStore records drain outcomes in Redis so operators and the health
// endpoint can see when the queue was last emptied and how it went.
type StatusStore struct {
	redis   redis.Client
	thingID string
	service string
}

// NewStatusStore creates a new drain status store
func NewStatusStore(redisClient redis.Client, thingID, serviceName string) *StatusStore {
	return &StatusStore{
		redis:   redisClient,
		thingID: thingID,
		service: serviceName,
	}
}

// RecordDrain writes the outcome of one drain invocation.
func (s *StatusStore) RecordDrain(ctx context.Context, result DrainResult, drainErr error) error {
	key := redis.DrainStatusKey(s.thingID)
	now := time.Now().UTC().Format(time.RFC3339)

	fields := map[string]string{
		"last_drain_at": now,
		"processed":     strconv.Itoa(result.Processed),
		"failed":        strconv.Itoa(result.Failed),
		"error":         "",
	}
	if drainErr != nil {
		fields["error"] = drainErr.Error()
	}

	for field, value := range fields {
		if err := s.redis.HSet(ctx, key, field, value); err != nil {
			return fmt.Errorf("failed to record drain status: %w", err)
		}
	}
	if err := s.redis.Expire(ctx, key, statusTTL); err != nil {
		return fmt.Errorf("failed to expire drain status: %w", err)
	}

	if err := s.redis.Set(ctx, redis.HeartbeatKey(s.service), now, statusTTL); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

// LastDrain returns the stored status fields for the thing, or an empty map
// when no drain has been recorded yet.
func (s *StatusStore) LastDrain(ctx context.Context) (map[string]string, error) {
	return s.redis.HGetAll(ctx, redis.DrainStatusKey(s.thingID))
}

// Heartbeat returns the timestamp of the agent's last status write.
func (s *StatusStore) Heartbeat(ctx context.Context) (string, error) {
	return s.redis.Get(ctx, redis.HeartbeatKey(s.service))
}
