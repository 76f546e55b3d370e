// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoEmail      = errors.New("token has no email claim")
)

// UserMetadata mirrors the profile block issued by the identity provider
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AdminClaims are the claims carried by an admin access token
type AdminClaims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// DisplayName returns the full name, or the email when no name is set
func (c AdminClaims) DisplayName() string {
	if c.UserMetadata.FullName != "" {
		return c.UserMetadata.FullName
	}
	return c.Email
}

// IssueAdminToken signs an HS256 access token for an admin.
// Used by tests and local tooling; production tokens come from the identity provider.
func IssueAdminToken(email, name, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Email:        email,
		UserMetadata: UserMetadata{FullName: name},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// ParseAdminToken verifies an HS256 access token and returns its claims
func ParseAdminToken(tokenString, secret string) (AdminClaims, error) {
	var claims AdminClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return AdminClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return AdminClaims{}, ErrNoEmail
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type claimsKey struct{}

// WithClaims stores verified admin claims on the context
func WithClaims(ctx context.Context, c AdminClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the admin claims stored by WithClaims
func ClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(AdminClaims)
	return c, ok
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
