package session

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyToken is returned when a token source yields nothing.
var ErrEmptyToken = errors.New("empty access token")

// User is the identity carried by an access token.
type User struct {
	AccountNo string
	Email     string
	Roles     []string
	ExpiresAt time.Time // zero means no expiry
}

// HasRole reports whether the user carries role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Expired reports whether the token has expired at now.
func (u User) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && now.After(u.ExpiresAt)
}

// ParseToken extracts the user from a JWT without verifying its signature.
func ParseToken(token string) (User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, fmt.Errorf("parse token: %w", err)
	}

	var u User
	u.AccountNo, _ = claims["sub"].(string)
	u.Email = firstString(claims, "email", "device_id")

	switch role := claims["role"].(type) {
	case string:
		u.Roles = []string{role}
	case []any:
		for _, r := range role {
			if s, ok := r.(string); ok {
				u.Roles = append(u.Roles, s)
			}
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return User{}, fmt.Errorf("token exp claim: %w", err)
	}
	if exp != nil {
		u.ExpiresAt = exp.Time
	}

	return u, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// LoadTokenFile reads an access token from a file, trimming whitespace.
func LoadTokenFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("token file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
