// Package keycloak adapts a Keycloak realm to the identity-provider
// surface the session manager expects. A headless client has no browser
// redirect, so the silent check is a refresh-token grant and the
// interactive login/logout hooks surface realm URLs to the operator.
package keycloak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Provider holds the realm endpoints and the current token pair.
type Provider struct {
	oauth     oauth2.Config
	logoutURL string
	logger    *zerolog.Logger

	// redirect is invoked with the interactive login/logout URL; the
	// default logs it for the operator to open.
	redirect func(url string)

	mu           sync.Mutex
	token        *oauth2.Token
	refreshToken string
}

// New constructs a provider for the given realm. refreshToken is the
// stored offline credential used for the silent check; empty means no
// active session.
func New(baseURL, realm, clientID, clientSecret, refreshToken string, logger *zerolog.Logger) *Provider {
	realmURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect", baseURL, realm)
	p := &Provider{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  realmURL + "/auth",
				TokenURL: realmURL + "/token",
			},
		},
		logoutURL:    realmURL + "/logout",
		logger:       logger,
		refreshToken: refreshToken,
	}
	p.redirect = func(url string) {
		logger.Info().Str("url", url).Msg("interactive redirect required")
	}
	return p
}

// SetRedirect overrides how interactive login/logout URLs are surfaced.
func (p *Provider) SetRedirect(fn func(url string)) {
	if fn != nil {
		p.redirect = fn
	}
}

// Init performs the silent authentication check. It reports false with
// no error when there is simply no stored session.
func (p *Provider) Init(ctx context.Context) (bool, error) {
	p.mu.Lock()
	rt := p.refreshToken
	p.mu.Unlock()
	if rt == "" {
		return false, nil
	}
	if err := p.grant(ctx); err != nil {
		return false, fmt.Errorf("silent check: %w", err)
	}
	return true, nil
}

// Login surfaces the interactive authentication URL.
func (p *Provider) Login() {
	p.redirect(p.oauth.AuthCodeURL("login"))
}

// Logout drops the token pair and surfaces the sign-out URL.
func (p *Provider) Logout() {
	p.mu.Lock()
	p.token = nil
	p.refreshToken = ""
	p.mu.Unlock()
	p.redirect(p.logoutURL)
}

// UpdateToken refreshes the access token if it expires within
// minValidity. It reports whether the token was actually rotated.
func (p *Provider) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	p.mu.Lock()
	tok := p.token
	p.mu.Unlock()

	if tok != nil && tok.AccessToken != "" && time.Until(tok.Expiry) > minValidity {
		return false, nil
	}
	if err := p.grant(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Token returns the current raw bearer token and its expiry.
func (p *Provider) Token() (string, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return "", time.Time{}
	}
	return p.token.AccessToken, p.token.Expiry
}

// grant exchanges the stored refresh token for a fresh token pair.
func (p *Provider) grant(ctx context.Context) error {
	p.mu.Lock()
	rt := p.refreshToken
	p.mu.Unlock()
	if rt == "" {
		return fmt.Errorf("no refresh token")
	}

	src := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: rt})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh grant: %w", err)
	}

	p.mu.Lock()
	p.token = tok
	// Keycloak rotates refresh tokens; keep the newest one.
	if tok.RefreshToken != "" {
		p.refreshToken = tok.RefreshToken
	}
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug().Time("expiry", tok.Expiry).Msg("token refreshed")
	}
	return nil
}
