// Package jwt validates bearer tokens signed with a shared HMAC secret.
package jwt

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/nverse/agentrelay/pkg/auth"
)

// Config configures a Validator.
type Config struct {
	// Secret is the HMAC signing key. Required.
	Secret string

	// Issuer, if set, must match the token's "iss" claim.
	Issuer string
}

// Validator checks a token's signature, expiry, and (optionally) issuer,
// and extracts the caller's identity from its claims.
type Validator struct {
	secret []byte
	issuer string
}

// New builds a Validator from cfg. Returns an error if cfg.Secret is empty.
func New(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret is required")
	}
	return &Validator{secret: []byte(cfg.Secret), issuer: cfg.Issuer}, nil
}

// Validate parses and verifies token, returning the identity it carries.
func (v *Validator) Validate(token string) (*auth.Identity, error) {
	claims := jwtlib.MapClaims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return nil, auth.ErrInvalidToken
	}

	if v.issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != v.issuer {
			return nil, auth.ErrInvalidToken
		}
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return nil, auth.ErrInvalidToken
	}

	return &auth.Identity{
		Subject: subject,
		Scopes:  extractScopes(claims),
	}, nil
}

// extractScopes reads a space-delimited "scope" claim, if present.
func extractScopes(claims jwtlib.MapClaims) []string {
	raw, ok := claims["scope"].(string)
	if !ok || raw == "" {
		return nil
	}
	var scopes []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ' ' {
			if i > start {
				scopes = append(scopes, raw[start:i])
			}
			start = i + 1
		}
	}
	return scopes
}
