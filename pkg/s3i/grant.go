package s3i

import "net/url"

// GrantStrategy builds the form payload for one OAuth grant type. The set is
// open: new grant types implement this interface and are passed to
// NewAuthenticator, the authenticator itself never changes.
type GrantStrategy interface {
	// GrantPayload returns the form-encoded body for the token request.
	GrantPayload() url.Values
}

// ClientCredentialsGrant authenticates a thing with its client id and secret.
type ClientCredentialsGrant struct {
	ID     string
	Secret string
}

func (g ClientCredentialsGrant) GrantPayload() url.Values {
	return url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {g.ID},
		"client_secret": {g.Secret},
	}
}

// PasswordGrant authenticates on behalf of a user. When username or password
// is missing the payload is empty; the identity provider will reject it,
// which surfaces the misconfiguration to the caller.
type PasswordGrant struct {
	ID       string
	Secret   string
	Username string
	Password string
}

func (g PasswordGrant) GrantPayload() url.Values {
	if g.Username == "" || g.Password == "" {
		return url.Values{}
	}
	return url.Values{
		"grant_type":    {"password"},
		"client_id":     {g.ID},
		"client_secret": {g.Secret},
		"username":      {g.Username},
		"password":      {g.Password},
	}
}
