package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

const testClientID = "client-123.apps.googleusercontent.com"

func validPayload() *idtoken.Payload {
	return &idtoken.Payload{
		Issuer:   "https://accounts.google.com",
		Audience: testClientID,
		Subject:  "109876543210",
		Claims: map[string]interface{}{
			"email":          "jane@example.com",
			"email_verified": true,
			"given_name":     "Jane",
			"family_name":    "Doe",
		},
	}
}

func stubVerifier(p *idtoken.Payload, err error) *GoogleVerifier {
	v := NewGoogleVerifier(testClientID)
	v.validate = func(_ context.Context, _ string, audience string) (*idtoken.Payload, error) {
		if audience != testClientID {
			return nil, errors.New("wrong audience passed")
		}
		return p, err
	}
	return v
}

func TestGoogleVerifier_Valid(t *testing.T) {
	claims, err := stubVerifier(validPayload(), nil).Verify(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, &Claims{
		Subject:    "109876543210",
		Email:      "jane@example.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
	}, claims)
}

func TestGoogleVerifier_BareIssuer(t *testing.T) {
	p := validPayload()
	p.Issuer = "accounts.google.com"
	_, err := stubVerifier(p, nil).Verify(context.Background(), "raw")
	assert.NoError(t, err)
}

func TestGoogleVerifier_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *idtoken.Payload)
	}{
		{"wrong issuer", func(p *idtoken.Payload) { p.Issuer = "https://evil.example.com" }},
		{"wrong audience", func(p *idtoken.Payload) { p.Audience = "other-client" }},
		{"unverified email", func(p *idtoken.Payload) { p.Claims["email_verified"] = false }},
		{"email_verified missing", func(p *idtoken.Payload) { delete(p.Claims, "email_verified") }},
		{"email missing", func(p *idtoken.Payload) { delete(p.Claims, "email") }},
		{"subject missing", func(p *idtoken.Payload) { p.Subject = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			_, err := stubVerifier(p, nil).Verify(context.Background(), "raw")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGoogleVerifier_ValidateError(t *testing.T) {
	_, err := stubVerifier(nil, errors.New("idtoken: token expired")).Verify(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogleVerifier_CertificatesUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transport failure", &url.Error{Op: "Get", URL: "https://www.googleapis.com/oauth2/v3/certs", Err: errors.New("connection refused")}},
		{"deadline", fmt.Errorf("idtoken: %w", context.DeadlineExceeded)},
		{"bad status", errors.New("idtoken: unable to retrieve cert, got status code 503")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stubVerifier(nil, tt.err).Verify(context.Background(), "raw")
			assert.ErrorIs(t, err, ErrUpstream)
			assert.NotErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGoogleVerifier_EmptyToken(t *testing.T) {
	_, err := NewGoogleVerifier(testClientID).Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
