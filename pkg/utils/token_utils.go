package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"carcare-dispatch/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateSecureToken creates a random, URL-safe string.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SignAccessToken issues a signed JWT carrying the user id and role. The
// identity provider normally does this; the helper exists for local
// development and tests.
func SignAccessToken(userID, role, secret string, ttl time.Duration) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("utils.SignAccessToken: %w", err)
	}
	return signed, nil
}
