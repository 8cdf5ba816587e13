// Package middleware provides request logging, tracing, rate limiting and token extraction for the HTTP layer.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrMissingAuthHeader = errors.New("Authorization header required")
	ErrInvalidAuthHeader = errors.New("Invalid authorization header format")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// UserID returns the authenticated user id stored in locals, or "".
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserID).(string)
	return uid
}

// IsAdmin reports whether the authenticated caller was resolved as an admin.
func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(LocalIsAdmin).(bool)
	return admin
}
