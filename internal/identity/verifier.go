// Package identity verifies federated identity tokens and drives the OAuth2
// authorization-code flow against Google.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/api/idtoken"
)

var (
	// ErrInvalidToken is returned for any identity token that fails verification.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrUpstream is returned when the token could not be checked because the
	// provider's signing keys were unreachable.
	ErrUpstream = errors.New("identity provider unavailable")
)

var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Claims is the verified identity asserted by a token.
type Claims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// Verifier checks an identity token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier validates Google-issued ID tokens against a client id.
type GoogleVerifier struct {
	audience string
	validate validateFunc
}

// NewGoogleVerifier creates a verifier accepting tokens issued for clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		audience: clientID,
		validate: idtoken.Validate,
	}
}

// Verify checks signature, expiry and audience, then the issuer and
// email_verified claims.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	payload, err := v.validate(ctx, rawToken, v.audience)
	if err != nil {
		if isUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claimsFromPayload(payload, v.audience)
}

// isUnavailable reports whether a validation error came from fetching the
// signing certificates rather than from the token itself.
func isUnavailable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(err.Error(), "unable to retrieve cert")
}

func claimsFromPayload(p *idtoken.Payload, audience string) (*Claims, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidToken)
	}
	if p.Audience != audience {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if !validIssuers[p.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, p.Issuer)
	}
	if verified, _ := p.Claims["email_verified"].(bool); !verified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	email, _ := p.Claims["email"].(string)
	if p.Subject == "" || email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	given, _ := p.Claims["given_name"].(string)
	family, _ := p.Claims["family_name"].(string)

	return &Claims{
		Subject:    p.Subject,
		Email:      email,
		GivenName:  given,
		FamilyName: family,
	}, nil
}

var _ Verifier = (*GoogleVerifier)(nil)
