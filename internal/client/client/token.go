package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can learn from a bearer token without the
// server's signing key.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// InspectToken decodes the claims of a JWT without verifying its signature.
// The server remains the authority on validity.
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if exp != nil {
		t := exp.Time.UTC()
		info.ExpiresAt = &t
	}
	return info, nil
}

// TokenUsable reports whether token is present and not known to be expired at
// now. Opaque tokens that are not JWTs are assumed usable.
func TokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	info, err := InspectToken(token)
	if err != nil {
		return true
	}
	return info.ExpiresAt == nil || now.Before(*info.ExpiresAt)
}
