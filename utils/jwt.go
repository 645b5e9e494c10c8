package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const adminRole = "admin"

// GenerateAdminToken creates a signed JWT granting admin access to broadcast endpoints.
// The token expires after the specified duration.
func GenerateAdminToken(secret, subject string, duration time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("admin secret is not configured")
	}
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAdminToken parses tokenString and returns its subject when it carries the admin role.
func ValidateAdminToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return "", errors.New("token is not an admin token")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
