package credential

import (
	"time"

	"golang.org/x/oauth2"
)

// DefaultAccount is the account key used by the single-user deployment.
const DefaultAccount = "default"

// Credential holds everything needed to call a Google API on the user's behalf:
// the tokens returned by the authorization server plus the client metadata
// required to refresh them.
type Credential struct {
	Token        string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// OAuth2Token converts the credential into an oauth2.Token.
func (c *Credential) OAuth2Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.Token,
		TokenType:    tokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// OAuth2Config rebuilds the client configuration the credential was issued to,
// so its refresh token can be redeemed at the same token endpoint.
func (c *Credential) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.TokenURI,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: append([]string(nil), c.Scopes...),
	}
}

// WithToken returns a copy of the credential carrying a refreshed token.
// Google does not always return a new refresh token on refresh, so the
// existing one is kept when the new token has none.
func (c *Credential) WithToken(token *oauth2.Token) *Credential {
	updated := c.Clone()
	updated.Token = token.AccessToken
	updated.Expiry = token.Expiry
	if token.TokenType != "" {
		updated.TokenType = token.TokenType
	}
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	return updated
}

// Clone returns a deep copy of the credential.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Scopes = append([]string(nil), c.Scopes...)
	return &clone
}
