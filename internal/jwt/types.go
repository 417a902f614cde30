package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Auth signs and verifies tokens with a shared secret. Only servers hold
// the secret; clients use Decode.
type Auth interface {
	Sign(claims *Claims) (string, error)
	Verify(tokenString string) (*Claims, error)
}

// Claims is the payload of a Bedrud access token.
type Claims struct {
	UserID   string   `json:"userId"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Accesses []string `json:"accesses,omitempty"`
	Provider string   `json:"provider,omitempty"`
	jwt.RegisteredClaims
}
