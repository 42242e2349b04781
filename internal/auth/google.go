// Package auth handles identity: Google sign-in and the browser session
// cookie derived from it.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	ErrMissingClientID     = errors.New("auth: client ID is required")
	ErrMissingClientSecret = errors.New("auth: client secret is required")
	ErrMissingRedirectURL  = errors.New("auth: redirect URL is required")
)

// Identity is what the provider asserts about the signed-in person.
// SubjectID is the provider's stable subject identifier, not an email.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// GoogleConfig configures the Google OAuth flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// UserinfoEndpoint overrides the OpenID userinfo URL. Tests only.
	UserinfoEndpoint string
}

func (c GoogleConfig) validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.RedirectURL == "" {
		return ErrMissingRedirectURL
	}
	return nil
}

// Google performs the authorization-code flow against Google and resolves
// the resulting token to an Identity.
type Google struct {
	oauth    *oauth2.Config
	userinfo string
}

// NewGoogle creates a Google provider from config.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	endpoint := cfg.UserinfoEndpoint
	if endpoint == "" {
		endpoint = defaultUserinfoEndpoint
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userinfo: endpoint,
	}, nil
}

// LoginURL returns the Google consent page URL carrying the given
// anti-forgery state.
func (g *Google) LoginURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange swaps the authorization code for a token and fetches the
// user's identity from the userinfo endpoint.
func (g *Google) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfo, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("userinfo response missing subject")
	}

	return &Identity{SubjectID: info.Sub, Email: info.Email, Name: info.Name}, nil
}
