package handlers

import (
	"errors"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/utils"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindInvalidAmount:            fiber.StatusBadRequest,
	apperrors.KindValidation:               fiber.StatusBadRequest,
	apperrors.KindSelfPurchase:             fiber.StatusBadRequest,
	apperrors.KindUnauthorized:             fiber.StatusUnauthorized,
	apperrors.KindForbidden:                fiber.StatusForbidden,
	apperrors.KindNotFound:                 fiber.StatusNotFound,
	apperrors.KindAlreadySold:              fiber.StatusConflict,
	apperrors.KindDuplicateRequest:         fiber.StatusConflict,
	apperrors.KindInvalidState:             fiber.StatusConflict,
	apperrors.KindInsufficientFunds:        fiber.StatusUnprocessableEntity,
	apperrors.KindBalanceCapExceeded:       fiber.StatusUnprocessableEntity,
	apperrors.KindAbuseSuspected:           fiber.StatusUnprocessableEntity,
	apperrors.KindDailyCreditLimitExceeded: fiber.StatusTooManyRequests,
	apperrors.KindTopUpCountExceeded:       fiber.StatusTooManyRequests,
	apperrors.KindRefillLimitExceeded:      fiber.StatusTooManyRequests,
	apperrors.KindRateLimited:              fiber.StatusTooManyRequests,
	apperrors.KindTransferFailed:           fiber.StatusInternalServerError,
	apperrors.KindCanceled:                 fiber.StatusRequestTimeout,
}

// StatusForKind maps a domain error kind to its HTTP status.
func StatusForKind(kind apperrors.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// handleError writes err as an error envelope. Errors without a domain kind
// are logged and reported without their details.
func handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, string(apperrors.KindValidation), fe.Message)
	}

	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		logger.WithField("path", c.Path()).Errorf("request failed: %v", err)
		return response.ServerError(c, "internal server error")
	}
	return response.Error(c, StatusForKind(kind), string(kind), err.Error())
}

// currentUser returns the verified caller or writes a 401.
func currentUser(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		_ = response.Unauthorized(c, "invalid claims")
		return nil, false
	}
	return claims, true
}
