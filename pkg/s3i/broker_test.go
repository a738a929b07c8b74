package s3i

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokerStub fakes both the identity provider and the broker behind one
// test server: POSTs to /token issue tokens, everything else is the broker.
type brokerStub struct {
	mux           *http.ServeMux
	receiveBody   string
	receiveCode   int
	sendCode      int
	sendResponse  string
	lastAuth      string
	lastGrantType string
	receiveCalls  int
}

func newBrokerStub() *brokerStub {
	s := &brokerStub{
		receiveCode: http.StatusOK,
		sendCode:    http.StatusCreated,
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			s.lastGrantType = r.PostForm.Get("grant_type")
		}
		fmt.Fprint(w, `{"token_type":"Bearer","access_token":"tok","expires_in":60,"refresh_token":"ref","refresh_expires_in":600}`)
	})
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth = r.Header.Get("Authorization")
		if r.Method == http.MethodPost {
			w.WriteHeader(s.sendCode)
			fmt.Fprint(w, s.sendResponse)
			return
		}
		s.receiveCalls++
		w.WriteHeader(s.receiveCode)
		fmt.Fprint(w, s.receiveBody)
	})
	return s
}

func newTestBroker(t *testing.T, stub *brokerStub) (*Broker, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub.mux)
	t.Cleanup(server.Close)

	thing := Thing{
		ID:           "thing-1",
		Secret:       "secret",
		MessageQueue: "queue/thing-1",
		EventQueue:   "queue/thing-1/event",
	}
	broker := NewBroker(thing, nil, server.Client(), server.URL, server.URL+"/token", testLogger())
	return broker, server
}

func TestBrokerDefaultsToClientCredentialsGrant(t *testing.T) {
	stub := newBrokerStub()
	broker, _ := newTestBroker(t, stub)

	_, err := broker.Receive(context.Background(), ReceiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "client_credentials", stub.lastGrantType)
}

func TestBrokerUsesConfiguredGrant(t *testing.T) {
	stub := newBrokerStub()
	server := httptest.NewServer(stub.mux)
	t.Cleanup(server.Close)

	thing := Thing{ID: "thing-1", Secret: "secret", MessageQueue: "q", EventQueue: "q/event"}
	grant := PasswordGrant{ID: "thing-1", Secret: "secret", Username: "forester", Password: "pw"}
	broker := NewBroker(thing, grant, server.Client(), server.URL, server.URL+"/token", testLogger())

	_, err := broker.Receive(context.Background(), ReceiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "password", stub.lastGrantType)
}

func TestSendSuccess(t *testing.T) {
	stub := newBrokerStub()
	stub.sendResponse = "created"
	broker, _ := newTestBroker(t, stub)

	status, body, err := broker.Send(context.Background(), "queue/other-thing", map[string]any{"hello": "world"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "created", body)
	assert.Equal(t, "Bearer tok", stub.lastAuth)
}

func TestSendNon201RaisesBrokerError(t *testing.T) {
	stub := newBrokerStub()
	stub.sendCode = http.StatusForbidden
	stub.sendResponse = "denied"
	broker, _ := newTestBroker(t, stub)

	message := map[string]any{"hello": "world"}
	_, _, err := broker.Send(context.Background(), "queue/other-thing", message)

	var brokerErr *BrokerError
	require.ErrorAs(t, err, &brokerErr)
	assert.Equal(t, http.StatusForbidden, brokerErr.StatusCode)
	assert.Equal(t, "denied", brokerErr.Response)
	assert.Equal(t, message, brokerErr.Body)
	assert.NotNil(t, brokerErr.Headers)
}

func TestReceiveReturnsDelivery(t *testing.T) {
	stub := newBrokerStub()
	stub.receiveBody = `{"messageType":"getValueReply"}`
	broker, _ := newTestBroker(t, stub)

	delivery, err := broker.Receive(context.Background(), ReceiveOptions{})
	require.NoError(t, err)
	require.NotNil(t, delivery)
	assert.Equal(t, http.StatusOK, delivery.StatusCode)
	assert.Equal(t, stub.receiveBody, delivery.Body)
}

func TestReceiveEmptyBodyMeansNoMessage(t *testing.T) {
	stub := newBrokerStub()
	stub.receiveBody = ""
	broker, _ := newTestBroker(t, stub)

	delivery, err := broker.Receive(context.Background(), ReceiveOptions{})
	require.NoError(t, err)
	assert.Nil(t, delivery)
}

func TestReceiveNon200RaisesBrokerError(t *testing.T) {
	stub := newBrokerStub()
	stub.receiveCode = http.StatusBadGateway
	stub.receiveBody = "upstream broken"
	broker, _ := newTestBroker(t, stub)

	_, err := broker.Receive(context.Background(), ReceiveOptions{})

	var brokerErr *BrokerError
	require.ErrorAs(t, err, &brokerErr)
	assert.Equal(t, http.StatusBadGateway, brokerErr.StatusCode)
	assert.Equal(t, "upstream broken", brokerErr.Response)
}

func TestNewThingDerivesQueues(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	thing := NewThing("thing-1", "secret", "", "", logger)

	assert.Equal(t, "s3ibs://thing-1", thing.MessageQueue)
	assert.Equal(t, "s3ib://thing-1/event", thing.EventQueue)

	// Each derivation warns: it usually means incomplete configuration.
	logs := logBuf.String()
	assert.Contains(t, logs, "No message queue provided")
	assert.Contains(t, logs, "No event queue provided")
}

func TestNewThingKeepsExplicitQueues(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	thing := NewThing("thing-1", "secret", "custom-queue", "custom-events", logger)

	assert.Equal(t, "custom-queue", thing.MessageQueue)
	assert.Equal(t, "custom-events", thing.EventQueue)
	assert.Empty(t, logBuf.String())
}
