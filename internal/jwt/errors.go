package jwt

import "github.com/imtaco/bedrud-client/internal/errors"

const (
	// ErrMissingClaims means a token lacks the user id every Bedrud token carries.
	ErrMissingClaims errors.Code = "missing claims"
	ErrInvalidToken  errors.Code = "invalid token"
	ErrNoToken       errors.Code = "no token"
)
