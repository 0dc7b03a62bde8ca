package handlers

import (
	"brokebuy/internal/logger"
	"brokebuy/internal/services/wallet"
	"brokebuy/internal/utils/pagination"
	"brokebuy/internal/utils/response"
	"brokebuy/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetBalance runs the auto-refill check before reading the balance, so a
// user below the threshold sees the refilled amount.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	refill, err := h.walletService.CheckAndAutoRefill(c.UserContext(), claims.UserID())
	if err != nil {
		logger.WithField("user_id", claims.UserID()).Warnf("auto-refill check failed: %v", err)
	}

	balance, err := h.walletService.GetBalance(c.UserContext(), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}

	data := fiber.Map{"balance": balance}
	if refill != nil && refill.Refilled {
		data["auto_refill"] = refill
	}
	return response.Success(c, data)
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	var input validation.TopUpRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return handleError(c, err)
	}

	tx, err := h.walletService.TopUp(c.UserContext(), claims.UserID(), input.Amount, "manual top-up")
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, fiber.Map{
		"transaction": tx,
		"new_balance": tx.NewBalance,
	})
}

func (h *WalletHandler) CheckAutoRefill(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	result, err := h.walletService.CheckAndAutoRefill(c.UserContext(), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, result)
}

func (h *WalletHandler) ManualRefill(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	result, err := h.walletService.ManualRefillToTarget(c.UserContext(), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, result)
}

func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	p := pagination.ParseFromRequest(c)
	page, err := h.walletService.GetLedgerHistory(c.UserContext(), claims.UserID(), p.Page, p.Limit)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, page)
}

func (h *WalletHandler) Reconcile(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	result, err := h.walletService.Reconcile(c.UserContext(), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, result)
}
