package s3i

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "live well before expiry",
			expiresAt: now.Add(time.Hour),
			want:      false,
		},
		{
			name:      "live just before expiry",
			expiresAt: now.Add(time.Second),
			want:      false,
		},
		{
			name:      "expired at expiry",
			expiresAt: now,
			want:      true,
		},
		{
			name:      "expired after expiry",
			expiresAt: now.Add(-time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := Token{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, token.Expired())
		})
	}
}

// Pins the corrected refresh-expiry semantics: a refresh token in the past
// is expired, one in the future is not.
func TestTokenRefreshExpired(t *testing.T) {
	live := Token{RefreshExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, live.RefreshExpired())

	dead := Token{RefreshExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, dead.RefreshExpired())
}

func TestTokenFullToken(t *testing.T) {
	token := Token{AuthScheme: "Bearer", Content: "abc123"}
	assert.Equal(t, "Bearer abc123", token.FullToken())
}
