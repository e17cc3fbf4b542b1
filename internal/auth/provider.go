package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// AuthorizationProvider walks the user through the browser half of the
// authorization-code flow and hands back the code
type AuthorizationProvider interface {
	// RedirectURL is registered as redirect_uri in the authorization request
	RedirectURL() string
	// Authorize shows authURL to the user and waits for the redirect
	Authorize(ctx context.Context, authURL string) (code string, err error)
}

// ErrStateMismatch is returned when the redirect carries a foreign state
var ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")

// Authenticate runs the authorization-code flow through p and exchanges
// the resulting code for a token
func Authenticate(ctx context.Context, cfg *oauth2.Config, p AuthorizationProvider) (*AuthResult, error) {
	// Generate state for CSRF protection
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	c := *cfg
	c.RedirectURL = p.RedirectURL()
	authURL := c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("approval_prompt", "auto"))

	code, err := p.Authorize(ctx, authURL)
	if err != nil {
		return nil, err
	}

	// Exchange code for token
	token, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
	}, nil
}

// stateOf returns the state parameter of an authorization URL
func stateOf(authURL string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("parsing auth url: %w", err)
	}
	return u.Query().Get("state"), nil
}

// codeFromCallback checks the redirect query and extracts the code
func codeFromCallback(q url.Values, state string) (string, error) {
	if q.Get("state") != state {
		return "", ErrStateMismatch
	}
	if errMsg := q.Get("error"); errMsg != "" {
		return "", fmt.Errorf("auth error: %s", errMsg)
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no code in callback")
	}
	return code, nil
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
