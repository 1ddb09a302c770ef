package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers bad signatures, malformed payloads, and expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject is returned when a valid token carries no subject claim.
	ErrMissingSubject = errors.New("token has no subject")
)

// SigningMethod maps an algorithm name from configuration to a JWT signing
// method. Only the HMAC family is supported.
func SigningMethod(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", name)
	}
}

// TokenIssuer mints and verifies signed, time-limited bearer tokens. The
// secret and algorithm are fixed at construction; rotating the secret
// invalidates every outstanding token.
type TokenIssuer struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
}

// NewTokenIssuer initializes a token issuer
func NewTokenIssuer(secret []byte, method jwt.SigningMethod, defaultTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, method: method, defaultTTL: defaultTTL}
}

// Issue signs a token carrying the subject and an expiry of now+ttl.
// A zero ttl falls back to the issuer's default.
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = t.defaultTTL
	}
	token := jwt.NewWithClaims(t.method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature and expiry and returns the subject claim.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != t.method.Alg() {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
