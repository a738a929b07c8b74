package s3i

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/woodsense/s3i-gateway/pkg/logging"
)

// DefaultBrokerURL is the REST endpoint of the S3I broker.
const DefaultBrokerURL = "https://broker.s3i.vswf.dev"

// Delivery is one message pulled from a queue.
type Delivery struct {
	StatusCode int
	Body       string
}

// ReceiveOptions selects which queue to poll and how.
type ReceiveOptions struct {
	// Event polls the event queue instead of the message queue.
	Event bool
	// All asks the broker for every queued message at once instead of a
	// single pop. The exact bulk semantics belong to the broker.
	All bool
}

// Broker is a client for one thing's view of the S3I message broker. It owns
// an Authenticator built from the thing's credentials and attaches bearer
// headers to every exchange.
type Broker struct {
	thing      Thing
	brokerURL  string
	httpClient *http.Client
	ownsClient bool
	auth       *Authenticator
	logger     *slog.Logger
}

// NewBroker creates a broker client for the given thing. A nil grant falls
// back to the client-credentials grant built from the thing's own
// credentials. A nil httpClient makes the broker create and own its
// transport; an injected one is shared with the authenticator and never
// released by the broker.
func NewBroker(thing Thing, grant GrantStrategy, httpClient *http.Client, brokerURL, idpURL string, logger *slog.Logger) *Broker {
	owns := false
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
		owns = true
	}
	if brokerURL == "" {
		brokerURL = DefaultBrokerURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if grant == nil {
		grant = ClientCredentialsGrant{ID: thing.ID, Secret: thing.Secret}
	}
	return &Broker{
		thing:      thing,
		brokerURL:  brokerURL,
		httpClient: httpClient,
		ownsClient: owns,
		auth:       NewAuthenticator(grant, httpClient, idpURL, logger),
		logger:     logger,
	}
}

// Thing returns the identity this broker client acts as.
func (b *Broker) Thing() Thing {
	return b.thing
}

// Close releases the HTTP transport if the broker created it.
func (b *Broker) Close() {
	if b.ownsClient {
		b.httpClient.CloseIdleConnections()
	}
}

// Send posts a JSON message to an endpoint on the broker. The endpoint is
// caller-supplied, so messages can target other things' queues. The broker
// acknowledges with 201; anything else is a BrokerError carrying the full
// exchange for diagnostics.
func (b *Broker) Send(ctx context.Context, endpoint string, message any) (int, string, error) {
	token, err := b.auth.ObtainToken(ctx)
	if err != nil {
		return 0, "", err
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s", b.brokerURL, endpoint)
	b.logger.Log(ctx, logging.LevelTrace, "Sending message", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token.FullToken())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read send response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return 0, "", &BrokerError{
			Message:    fmt.Sprintf("failed to send message to %s", endpoint),
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       message,
			Response:   string(body),
		}
	}

	b.logger.Log(ctx, logging.LevelSuccess, "Message sent", "endpoint", endpoint)
	return resp.StatusCode, string(body), nil
}

// Receive polls one of the thing's own queues. A nil Delivery with a nil
// error means the queue is currently empty; only a 200 response counts as
// success.
func (b *Broker) Receive(ctx context.Context, opts ReceiveOptions) (*Delivery, error) {
	queue := b.thing.MessageQueue
	if opts.Event {
		queue = b.thing.EventQueue
	}

	token, err := b.auth.ObtainToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", b.brokerURL, queue)
	if opts.All {
		url += "/all"
	}
	b.logger.Log(ctx, logging.LevelTrace, "Receiving message", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create receive request: %w", err)
	}
	req.Header.Set("Authorization", token.FullToken())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("receive request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receive response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BrokerError{
			Message:    fmt.Sprintf("failed to get message from %s", queue),
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Response:   string(body),
		}
	}

	if len(body) == 0 {
		b.logger.Log(ctx, logging.LevelTrace, "No message available", "queue", queue)
		return nil, nil
	}

	b.logger.Log(ctx, logging.LevelSuccess, "Message received", "queue", queue, "size", len(body))
	return &Delivery{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
