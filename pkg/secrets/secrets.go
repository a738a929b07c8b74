package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known secret names the gateway looks up at startup.
const (
	ThingID      = "s3i_id"
	ThingSecret  = "s3i_secret"
	MessageQueue = "s3i_message_queue"
	EventQueue   = "s3i_event_queue"
)

// Provider looks up secret values by name. The gateway treats every value
// as an opaque string; where it is stored is a deployment concern.
type Provider interface {
	// Get returns the secret value for a name, or an error when the
	// provider has no value for it.
	Get(name string) (string, error)
}

// EnvProvider resolves secrets from environment variables: the name is
// upper-cased, so "s3i_id" reads S3I_ID.
type EnvProvider struct{}

func (EnvProvider) Get(name string) (string, error) {
	v := os.Getenv(strings.ToUpper(name))
	if v == "" {
		return "", fmt.Errorf("secret %s not set in environment", name)
	}
	return v, nil
}

// FileProvider resolves secrets from files in a directory, one file per
// secret, the way docker/nomad mount them (e.g. /run/secrets/s3i_id).
type FileProvider struct {
	Dir string
}

func (p FileProvider) Get(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir, name))
	if err != nil {
		return "", fmt.Errorf("secret %s not readable: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Chain tries each provider in order and returns the first value found.
type Chain []Provider

func (c Chain) Get(name string) (string, error) {
	var lastErr error
	for _, p := range c {
		v, err := p.Get(name)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return "", fmt.Errorf("secret %s not found: %w", name, lastErr)
}

// GetOrDefault returns the secret value, or the fallback when no provider
// has it. Used for optional secrets like queue overrides.
func GetOrDefault(p Provider, name, fallback string) string {
	v, err := p.Get(name)
	if err != nil {
		return fallback
	}
	return v
}
