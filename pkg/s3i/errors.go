package s3i

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidCredentials marks an authentication failure where the identity
// provider explicitly rejected the client credentials. Callers check for it
// with errors.Is; retrying with the same credentials will not help.
var ErrInvalidCredentials = errors.New("invalid client credentials")

// AuthenticationError is returned when no valid token could be obtained from
// the identity provider. StatusCode and Response carry the provider's reply
// when the failure came from an HTTP response.
type AuthenticationError struct {
	Message    string
	StatusCode int
	Response   string
	err        error
}

func (e *AuthenticationError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d: %s)", msg, e.StatusCode, e.Response)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.err
}

// BrokerError is returned for any non-success status from the broker. It
// carries the full diagnostic context of the failed exchange.
type BrokerError struct {
	Message    string
	StatusCode int
	Headers    http.Header
	Body       any
	Response   string
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("%s (status %d: %s)", e.Message, e.StatusCode, e.Response)
}

// MalformedMessageError is returned when an inbound payload does not match
// any known message schema.
type MalformedMessageError struct {
	Message string
	Err     error
}

func (e *MalformedMessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed message: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("malformed message: %s", e.Message)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

// ProcessingErrors aggregates the independent per-message failures of one
// drain invocation, in the order they occurred. It unwraps to the individual
// errors so errors.Is/As can reach each one.
type ProcessingErrors []error

func (e ProcessingErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred while processing messages: %s",
		len(e), strings.Join(msgs, "; "))
}

func (e ProcessingErrors) Unwrap() []error {
	return e
}
