// Package auth verifies bearer tokens issued by the external identity
// provider and resolves the user id every store operation is scoped by.
// Login, refresh and password handling are the provider's job, not ours.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/reimagine-business/donna/internal"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HMAC-signed access tokens against the shared
// secret configured for the auth provider.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.UserID == "" {
		// Some providers only set the subject claim.
		if claims.Subject == "" {
			return nil, apperrors.ErrInvalidToken
		}
		claims.UserID = claims.Subject
	}
	return claims, nil
}
