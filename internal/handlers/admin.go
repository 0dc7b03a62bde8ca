package handlers

import (
	"brokebuy/internal/services/abuse"
	"brokebuy/internal/services/wallet"
	"brokebuy/internal/utils/pagination"
	"brokebuy/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes system-wide money flow and abuse tooling. Routes
// are guarded by the admin middleware.
type AdminHandler struct {
	walletService wallet.Service
	abuseService  abuse.Service
}

func NewAdminHandler(walletService wallet.Service, abuseService abuse.Service) *AdminHandler {
	return &AdminHandler{
		walletService: walletService,
		abuseService:  abuseService,
	}
}

func (h *AdminHandler) CreditSummary(c *fiber.Ctx) error {
	summary, err := h.walletService.GetCreditSummary(c.UserContext(), c.Query("user_id"), pagination.DaysFromRequest(c, 30))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, summary)
}

func (h *AdminHandler) MoneyFlow(c *fiber.Ctx) error {
	stats, err := h.walletService.GetMoneyFlowStats(c.UserContext(), pagination.DaysFromRequest(c, 30))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, stats)
}

func (h *AdminHandler) AbuseCheck(c *fiber.Ctx) error {
	userA, userB := c.Query("user_a"), c.Query("user_b")
	if userA == "" || userB == "" {
		return response.BadRequest(c, "user_a and user_b are required")
	}
	verdict, err := h.abuseService.DetectCircularTrade(c.UserContext(), userA, userB)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, verdict)
}

func (h *AdminHandler) AbuseStats(c *fiber.Ctx) error {
	stats, err := h.abuseService.GetTradingStats(c.UserContext(), c.Params("userID"), pagination.DaysFromRequest(c, 30))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, stats)
}
