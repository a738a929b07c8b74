package fetcher

import (
	"context"
	"fmt"

	"github.com/woodsense/s3i-gateway/pkg/s3i"
)

// Receiver is the slice of the broker client the drain loop needs.
type Receiver interface {
	Receive(ctx context.Context, opts s3i.ReceiveOptions) (*s3i.Delivery, error)
}

// DrainResult summarizes one completed drain invocation.
type DrainResult struct {
	Processed int
	Failed    int
}

// Drain empties the thing's message queue one message at a time. A failure
// while handling one message is recorded and the loop keeps going; only a
// failed receive aborts the drain, since the queue state is then unknown.
// After the queue is empty the accumulated per-message failures, if any,
// are returned as a single s3i.ProcessingErrors in arrival order.
func (a *Agent) Drain(ctx context.Context) (DrainResult, error) {
	var (
		result   DrainResult
		failures s3i.ProcessingErrors
	)

	for {
		delivery, err := a.broker.Receive(ctx, s3i.ReceiveOptions{})
		if err != nil {
			return result, fmt.Errorf("receive failed during drain: %w", err)
		}
		if delivery == nil {
			break
		}

		if err := a.handleMessage(ctx, delivery.Body); err != nil {
			a.logger.Error("Failed to handle message", "error", err)
			failures = append(failures, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	if len(failures) > 0 {
		return result, failures
	}
	return result, nil
}

// handleMessage parses one payload and routes it. Image replies are decoded
// and stored; every other message type is left to other agents.
func (a *Agent) handleMessage(ctx context.Context, body string) error {
	env, err := s3i.ParseEnvelope([]byte(body))
	if err != nil {
		return err
	}

	a.logger.Debug("Received message",
		"type", string(env.Type),
		"sender", env.Sender,
		"identifier", env.Identifier)

	if !s3i.IsImageMessage(env) {
		return nil
	}

	img, err := a.handler.HandleImage(ctx, env)
	if err != nil {
		return err
	}

	a.publishTrigger(env.Sender, img)
	return nil
}
