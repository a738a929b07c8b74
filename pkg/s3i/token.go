package s3i

import (
	"fmt"
	"time"
)

// Token is an immutable snapshot of a bearer credential issued by the S3I
// identity provider. The access token and the refresh token expire
// independently; the authenticator replaces the whole snapshot on refresh.
type Token struct {
	AuthScheme       string
	Content          string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Expired reports whether the access token has expired. A token is live
// strictly before ExpiresAt and expired at or after it.
func (t Token) Expired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// RefreshExpired reports whether the refresh token has expired.
func (t Token) RefreshExpired() bool {
	return !time.Now().Before(t.RefreshExpiresAt)
}

// FullToken returns the Authorization header value, scheme included.
func (t Token) FullToken() string {
	return fmt.Sprintf("%s %s", t.AuthScheme, t.Content)
}
