package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	stateTTL        = 10 * time.Minute
)

var (
	// ErrInvalidState is returned when the callback state is missing, forged or expired.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrExchange is returned when the authorization code cannot be redeemed.
	ErrExchange = errors.New("oauth code exchange failed")
)

// OAuthConfig configures the authorization-code flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string

	// Overridable for tests.
	AuthURL  string
	TokenURL string
}

// OAuthFlow builds consent URLs and redeems callback codes for ID tokens.
// The state parameter is a short-lived HMAC-signed token, so no server-side
// session storage is needed.
type OAuthFlow struct {
	config      *oauth2.Config
	stateSecret []byte
}

// NewOAuthFlow creates a new OAuthFlow.
func NewOAuthFlow(cfg OAuthConfig) *OAuthFlow {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &OAuthFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		stateSecret: []byte(cfg.StateSecret),
	}
}

// LoginURL returns the consent page URL with a fresh signed state.
func (f *OAuthFlow) LoginURL() (string, error) {
	now := time.Now()
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        uuid.New().String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(stateTTL).Unix(),
		Subject:   "oauth_state",
	}).SignedString(f.stateSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return f.config.AuthCodeURL(state), nil
}

// Exchange verifies state and trades code for the provider's ID token.
func (f *OAuthFlow) Exchange(ctx context.Context, code, state string) (string, error) {
	if err := f.checkState(state); err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("%w: missing code", ErrExchange)
	}

	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchange, err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", fmt.Errorf("%w: no id_token in response", ErrExchange)
	}
	return idToken, nil
}

func (f *OAuthFlow) checkState(state string) error {
	if state == "" {
		return fmt.Errorf("%w: missing", ErrInvalidState)
	}
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return f.stateSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject != "oauth_state" {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
