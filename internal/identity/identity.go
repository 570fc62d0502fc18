// Package identity is the thin adapter between externally issued access
// tokens and the authorization core. Token issuance lives in the identity
// provider; this package only validates tokens and resolves the claims to
// an authenticated principal.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric user id carried in the claims.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

type ValidatorAPI interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenValidator validates HMAC-signed access tokens minted by the
// identity provider.
type TokenValidator struct {
	secret []byte
	maxTTL time.Duration
}

func NewTokenValidator(secret string, maxTTL time.Duration) *TokenValidator {
	return &TokenValidator{
		secret: []byte(secret),
		maxTTL: maxTTL,
	}
}

func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Reject tokens with implausibly long lifetimes: the issuer caps access
	// tokens at maxTTL, so anything beyond it was not minted by it.
	if v.maxTTL > 0 && claims.ExpiresAt != nil && claims.IssuedAt != nil {
		if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.maxTTL {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}
