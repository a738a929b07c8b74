package s3i

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/woodsense/s3i-gateway/pkg/logging"
)

// DefaultIdPURL is the token endpoint of the S3I identity provider.
const DefaultIdPURL = "https://idp.s3i.vswf.dev/auth/realms/KWH/protocol/openid-connect/token"

// invalidClientBody is the exact error body Keycloak returns for bad client
// credentials. Matched verbatim to distinguish the non-retryable case.
const invalidClientBody = `{"error":"invalid_client","error_description":"Invalid client credentials"}`

// Authenticator obtains and caches bearer tokens from the S3I identity
// provider. Every ObtainToken call makes a tri-state decision: reuse the
// cached token while it is live, refresh it while the refresh token is live,
// otherwise run the configured grant from scratch.
//
// The cached token is instance-scoped mutable state; an Authenticator must
// not be shared across goroutines without external synchronization.
type Authenticator struct {
	grant      GrantStrategy
	idpURL     string
	httpClient *http.Client
	ownsClient bool
	token      *Token
	logger     *slog.Logger
}

// NewAuthenticator creates an authenticator for the given grant strategy.
// When httpClient is nil the authenticator creates its own transport and is
// responsible for releasing it in Close; an injected transport is never
// released here.
func NewAuthenticator(grant GrantStrategy, httpClient *http.Client, idpURL string, logger *slog.Logger) *Authenticator {
	owns := false
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
		owns = true
	}
	if idpURL == "" {
		idpURL = DefaultIdPURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		grant:      grant,
		idpURL:     idpURL,
		httpClient: httpClient,
		ownsClient: owns,
		logger:     logger,
	}
}

// Close releases the HTTP transport if the authenticator created it.
func (a *Authenticator) Close() {
	if a.ownsClient {
		a.httpClient.CloseIdleConnections()
	}
}

// ObtainToken returns a valid token, hitting the identity provider only when
// the cached one cannot be reused.
func (a *Authenticator) ObtainToken(ctx context.Context) (Token, error) {
	switch {
	case a.token != nil && !a.token.Expired():
		a.logger.Debug("Token is still valid")
		return *a.token, nil
	case a.token != nil && !a.token.RefreshExpired():
		a.logger.Debug("Token is expired, refresh token is still valid")
		token, err := a.refreshToken(ctx)
		if err != nil {
			return Token{}, err
		}
		a.token = &token
	default:
		a.logger.Debug("No usable token cached, requesting a new one")
		token, err := a.requestToken(ctx, a.grant.GrantPayload())
		if err != nil {
			return Token{}, err
		}
		a.token = &token
	}

	a.logger.Log(ctx, logging.LevelSuccess, "Token obtained", "expires_at", a.token.ExpiresAt)
	return *a.token, nil
}

// refreshToken exchanges the cached refresh token for a new token pair.
func (a *Authenticator) refreshToken(ctx context.Context) (Token, error) {
	payload := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {a.token.RefreshToken},
	}
	return a.requestToken(ctx, payload)
}

// requestToken posts a grant payload to the identity provider and parses the
// token response.
func (a *Authenticator) requestToken(ctx context.Context, payload url.Values) (Token, error) {
	a.logger.Log(ctx, logging.LevelTrace, "Requesting token", "url", a.idpURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.idpURL,
		strings.NewReader(payload.Encode()))
	if err != nil {
		return Token{}, &AuthenticationError{Message: "failed to create token request", err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Token{}, &AuthenticationError{Message: "token request failed", err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &AuthenticationError{Message: "failed to read token response", err: err}
	}

	if resp.StatusCode >= 400 {
		if string(body) == invalidClientBody {
			return Token{}, &AuthenticationError{
				Message:    "identity provider rejected client credentials",
				StatusCode: resp.StatusCode,
				Response:   string(body),
				err:        ErrInvalidCredentials,
			}
		}
		return Token{}, &AuthenticationError{
			Message:    "could not obtain token from identity provider",
			StatusCode: resp.StatusCode,
			Response:   string(body),
		}
	}

	return parseTokenResponse(body, time.Now())
}

// tokenResponse mirrors the OpenID-Connect token endpoint body.
type tokenResponse struct {
	TokenType        string `json:"token_type"`
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

func parseTokenResponse(body []byte, now time.Time) (Token, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, &AuthenticationError{Message: "failed to decode token response", err: err}
	}
	if tr.AccessToken == "" {
		return Token{}, &AuthenticationError{
			Message:  "token response carries no access token",
			Response: string(body),
		}
	}
	return Token{
		AuthScheme:       tr.TokenType,
		Content:          tr.AccessToken,
		ExpiresAt:        now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		RefreshToken:     tr.RefreshToken,
		RefreshExpiresAt: now.Add(time.Duration(tr.RefreshExpiresIn) * time.Second),
	}, nil
}
