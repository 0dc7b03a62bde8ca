package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := map[apperrors.Kind]int{
		apperrors.KindInvalidAmount:            fiber.StatusBadRequest,
		apperrors.KindForbidden:                fiber.StatusForbidden,
		apperrors.KindNotFound:                 fiber.StatusNotFound,
		apperrors.KindAlreadySold:              fiber.StatusConflict,
		apperrors.KindBalanceCapExceeded:       fiber.StatusUnprocessableEntity,
		apperrors.KindInsufficientFunds:        fiber.StatusUnprocessableEntity,
		apperrors.KindDailyCreditLimitExceeded: fiber.StatusTooManyRequests,
		apperrors.KindTransferFailed:           fiber.StatusInternalServerError,
		apperrors.KindCanceled:                 fiber.StatusRequestTimeout,
		apperrors.KindInternal:                 fiber.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusForKind(kind), kind)
	}
}

func TestHandleError(t *testing.T) {
	app := fiber.New()
	app.Get("/domain", func(c *fiber.Ctx) error {
		return handleError(c, fmt.Errorf("wrapped: %w", apperrors.ErrBalanceCapExceeded))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return handleError(c, errors.New("pq: connection refused"))
	})
	app.Get("/canceled", func(c *fiber.Ctx) error {
		return handleError(c, fmt.Errorf("failed to load listing: %w", context.Canceled))
	})

	tests := []struct {
		path        string
		wantStatus  int
		wantKind    string
		hideMessage bool
	}{
		{"/domain", fiber.StatusUnprocessableEntity, "BalanceCapExceeded", false},
		{"/internal", fiber.StatusInternalServerError, "Internal", true},
		{"/canceled", fiber.StatusRequestTimeout, "Canceled", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body response.Envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			if tt.hideMessage {
				assert.NotContains(t, body.Error.Message, "pq")
			}
		})
	}
}
