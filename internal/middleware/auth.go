// Package middleware provides HTTP middleware components for the application.
// Identity is established from access tokens issued by the campus identity
// provider; the token subject is the user id.
package middleware

import (
	"strings"

	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/utils"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates bearer tokens and stores the claims in the
// request locals.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Handler checks for:
// - Presence of Authorization header with Bearer token
// - Valid HMAC signature and expiry
// - A subject naming the user
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Unauthorized(c, "missing authorization header")
	}

	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return response.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseToken(tokenString, m.secret)
	if err != nil {
		logger.Debugf("token rejected: %v", err)
		return response.Unauthorized(c, "invalid token")
	}

	c.Locals(utils.ClaimsKey, claims)
	return c.Next()
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	if claims.Role != models.RoleAdmin {
		logger.WithField("user_id", claims.UserID()).Warn("admin access denied")
		return response.Forbidden(c, "insufficient permissions")
	}

	return c.Next()
}
