// Package auth is the identity gate in front of chat operations. Sign-in
// itself belongs to the external identity provider; this package only checks
// the token it issued.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID identifies the single user when no secret is configured.
const LocalUserID = "local"

// Identity is what the chat surface needs to know about the caller.
type Identity struct {
	UserID   string
	SignedIn bool
}

// GenerateJWT issues an HS256 token for userID, valid for ttl.
func GenerateJWT(userID string, secretKey []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user ID cannot be empty")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ValidateToken checks the signature and expiry and returns the subject.
func ValidateToken(tokenString string, secretKey []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}
