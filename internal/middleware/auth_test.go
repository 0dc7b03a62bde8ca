package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/utils"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestApp() *fiber.App {
	app := fiber.New()
	auth := NewAuthMiddleware(testSecret)
	app.Get("/me", auth.Handler, func(c *fiber.Ctx) error {
		claims, err := utils.GetUserClaims(c)
		if err != nil {
			return err
		}
		return c.SendString(claims.UserID())
	})
	app.Get("/admin", auth.Handler, AdminAuthMiddleware, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func token(t *testing.T, subject, role, secret string) string {
	t.Helper()
	tok, err := utils.SignToken(models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Role:             role,
	}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{"no header", "/me", "", fiber.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc.def.ghi", fiber.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + token(t, "u1", models.RoleUser, "other"), fiber.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + token(t, "u1", models.RoleUser, testSecret), fiber.StatusOK},
		{"admin route as user", "/admin", "Bearer " + token(t, "u1", models.RoleUser, testSecret), fiber.StatusForbidden},
		{"admin route as admin", "/admin", "Bearer " + token(t, "u2", models.RoleAdmin, testSecret), fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusUnauthorized {
				var body response.Envelope
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.False(t, body.Success)
				require.NotNil(t, body.Error)
				assert.Equal(t, "Unauthorized", body.Error.Kind)
			}
		})
	}
}
