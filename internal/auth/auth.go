package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller attached to a request
type Identity struct {
	UserID int64
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Verifier validates HMAC-signed session tokens issued by the identity
// service and extracts the caller's identity.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier with the shared signing secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token
func (v *Verifier) Verify(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidToken)
	}
	return &Identity{UserID: claims.UserID}, nil
}
