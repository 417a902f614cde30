package jwt

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/imtaco/bedrud-client/internal/errors"
)

func NewAuth(secret string) Auth {
	return NewAuthWithAlgorithm(secret, jwt.SigningMethodHS256)
}

// NewAuthWithAlgorithm accepts HS256, HS384 or HS512. Verification only
// admits tokens signed with the same method.
func NewAuthWithAlgorithm(secret string, method jwt.SigningMethod) Auth {
	return &jwtAuthImpl{
		secret:        []byte(secret),
		signingMethod: method,
	}
}

type jwtAuthImpl struct {
	secret        []byte
	signingMethod jwt.SigningMethod
}

func (j *jwtAuthImpl) Sign(claims *Claims) (string, error) {
	if claims == nil || claims.UserID == "" {
		return "", errors.New(ErrMissingClaims, "userId is required")
	}
	return jwt.NewWithClaims(j.signingMethod, claims).SignedString(j.secret)
}

func (j *jwtAuthImpl) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if alg := token.Method.Alg(); alg != j.signingMethod.Alg() {
			return nil, errors.Newf(ErrInvalidToken,
				"unexpected signing method: %s (expected: %s)", alg, j.signingMethod.Alg())
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err, "verify token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New(ErrInvalidToken, "missing required fields in token")
	}
	return claims, nil
}

// Decode reads the claims without checking the signature. The client never
// holds the signing secret and trusts whatever its server handed it.
func Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err, "decode token")
	}
	if claims.UserID == "" {
		return nil, errors.New(ErrInvalidToken, "token without userId")
	}
	return &claims, nil
}
