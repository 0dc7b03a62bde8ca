package handlers

import (
	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/models"
	"brokebuy/internal/services/wallet"
	"brokebuy/internal/utils/pagination"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// CreditHandler serves a user's own credit transactions.
type CreditHandler struct {
	walletService wallet.Service
}

func NewCreditHandler(walletService wallet.Service) *CreditHandler {
	return &CreditHandler{walletService: walletService}
}

func (h *CreditHandler) List(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	txType := models.CreditTransactionType(c.Query("type"))
	if txType != "" && !txType.Valid() {
		return handleError(c, apperrors.Newf(apperrors.KindValidation, "unknown transaction type %q", txType))
	}

	p := pagination.ParseFromRequest(c)
	page, err := h.walletService.GetCreditTransactions(c.UserContext(), claims.UserID(), p.Page, p.Limit, txType)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, page)
}

func (h *CreditHandler) Summary(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	summary, err := h.walletService.GetCreditSummary(c.UserContext(), claims.UserID(), pagination.DaysFromRequest(c, 30))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, summary)
}
