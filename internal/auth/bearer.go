// Package auth holds credential primitives: password hashing, access tokens
// and Authorization header parsing.
package auth

import (
	"errors"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingAuthorization = errors.New("missing Authorization header")
	ErrInvalidAuthorization = errors.New("invalid Authorization header")
)

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthorization
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidAuthorization
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.Contains(token, " ") {
		return "", ErrInvalidAuthorization
	}
	return token, nil
}
