package auth

import "errors"

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the unique identifier taken from the JWT's "sub" claim.
	Subject string

	// Scopes lists the authorization scopes granted, if the token carries any.
	Scopes []string
}

// Sentinel errors returned by Validators and surfaced as HTTP 401s.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Validator authenticates a bearer token and returns the identity it carries.
type Validator interface {
	Validate(token string) (*Identity, error)
}
