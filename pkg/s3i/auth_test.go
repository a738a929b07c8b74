package s3i

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// idpStub is a fake identity provider that counts requests per grant type.
type idpStub struct {
	calls        map[string]int
	status       int
	body         string
	expiresIn    int
	refreshIn    int
	accessToken  string
	refreshToken string
}

func newIdPStub() *idpStub {
	return &idpStub{
		calls:        map[string]int{},
		expiresIn:    60,
		refreshIn:    1800,
		accessToken:  "access-1",
		refreshToken: "refresh-1",
	}
}

func (s *idpStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.calls[r.PostForm.Get("grant_type")]++

		if s.status != 0 {
			w.WriteHeader(s.status)
			fmt.Fprint(w, s.body)
			return
		}

		fmt.Fprintf(w, `{"token_type":"Bearer","access_token":%q,"expires_in":%d,"refresh_token":%q,"refresh_expires_in":%d}`,
			s.accessToken, s.expiresIn, s.refreshToken, s.refreshIn)
	}
}

func (s *idpStub) total() int {
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func TestObtainTokenCachesWhileValid(t *testing.T) {
	stub := newIdPStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "s"}, server.Client(), server.URL, testLogger())

	first, err := auth.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", first.AuthScheme)
	assert.Equal(t, "access-1", first.Content)
	assert.Equal(t, 1, stub.calls["client_credentials"])

	// Second call must reuse the cache without touching the network.
	second, err := auth.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, stub.total())
}

func TestObtainTokenRefreshesExpiredToken(t *testing.T) {
	stub := newIdPStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "s"}, server.Client(), server.URL, testLogger())

	_, err := auth.ObtainToken(context.Background())
	require.NoError(t, err)

	// Expire the access token but keep the refresh token alive.
	auth.token.ExpiresAt = time.Now().Add(-time.Minute)
	stub.accessToken = "access-2"

	token, err := auth.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.Content)
	assert.Equal(t, 1, stub.calls["client_credentials"])
	assert.Equal(t, 1, stub.calls["refresh_token"])
}

func TestObtainTokenReacquiresWhenBothExpired(t *testing.T) {
	stub := newIdPStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "s"}, server.Client(), server.URL, testLogger())

	_, err := auth.ObtainToken(context.Background())
	require.NoError(t, err)

	auth.token.ExpiresAt = time.Now().Add(-time.Minute)
	auth.token.RefreshExpiresAt = time.Now().Add(-time.Minute)

	_, err = auth.ObtainToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls["client_credentials"])
	assert.Equal(t, 0, stub.calls["refresh_token"])
}

func TestObtainTokenInvalidCredentials(t *testing.T) {
	stub := newIdPStub()
	stub.status = http.StatusUnauthorized
	stub.body = `{"error":"invalid_client","error_description":"Invalid client credentials"}`
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "wrong"}, server.Client(), server.URL, testLogger())

	_, err := auth.ObtainToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestObtainTokenGenericAuthError(t *testing.T) {
	stub := newIdPStub()
	stub.status = http.StatusInternalServerError
	stub.body = `{"error":"server_error"}`
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "s"}, server.Client(), server.URL, testLogger())

	_, err := auth.ObtainToken(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusInternalServerError, authErr.StatusCode)
	assert.Equal(t, `{"error":"server_error"}`, authErr.Response)
}

func TestObtainTokenNearMissBodyStaysGeneric(t *testing.T) {
	// Only the exact provider payload means invalid credentials; a
	// near-miss body keeps the generic classification.
	stub := newIdPStub()
	stub.status = http.StatusUnauthorized
	stub.body = `{"error":"invalid_client","error_description":"Invalid client or Invalid client credentials"}`
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	auth := NewAuthenticator(ClientCredentialsGrant{ID: "thing", Secret: "s"}, server.Client(), server.URL, testLogger())

	_, err := auth.ObtainToken(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

func TestTransportOwnership(t *testing.T) {
	// A self-created transport is owned and released on Close.
	owned := NewAuthenticator(ClientCredentialsGrant{}, nil, "", testLogger())
	assert.True(t, owned.ownsClient)
	owned.Close()

	// An injected transport is shared; Close must leave it alone.
	injected := NewAuthenticator(ClientCredentialsGrant{}, &http.Client{}, "", testLogger())
	assert.False(t, injected.ownsClient)
	injected.Close()
}

func TestPasswordGrantPayload(t *testing.T) {
	full := PasswordGrant{ID: "id", Secret: "s", Username: "user", Password: "pw"}
	payload := full.GrantPayload()
	assert.Equal(t, "password", payload.Get("grant_type"))
	assert.Equal(t, "user", payload.Get("username"))

	// Missing user credentials produce an empty payload; the provider will
	// reject it, surfacing the misconfiguration.
	partial := PasswordGrant{ID: "id", Secret: "s"}
	assert.Empty(t, partial.GrantPayload())
}
