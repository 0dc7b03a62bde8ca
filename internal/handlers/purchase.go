package handlers

import (
	"brokebuy/internal/services/purchase"
	"brokebuy/internal/utils/response"
	"brokebuy/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// PurchaseHandler serves the purchase request lifecycle of a listing.
type PurchaseHandler struct {
	purchaseService purchase.Service
}

func NewPurchaseHandler(purchaseService purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

func (h *PurchaseHandler) Create(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	var input validation.CreatePurchaseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "invalid request format")
		}
	}
	if err := validation.Struct(input); err != nil {
		return handleError(c, err)
	}

	req, err := h.purchaseService.CreateRequest(c.UserContext(), purchase.CreateRequestInput{
		ListingID: c.Params("listingID"),
		BuyerID:   claims.UserID(),
		Note:      input.Note,
	})
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, req)
}

func (h *PurchaseHandler) ListForListing(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	reqs, err := h.purchaseService.ListRequestsForListing(c.UserContext(), c.Params("listingID"), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, reqs)
}

func (h *PurchaseHandler) Get(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	req, err := h.purchaseService.GetRequest(c.UserContext(), c.Params("requestID"), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, req)
}

func (h *PurchaseHandler) Accept(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	result, err := h.purchaseService.AcceptRequest(c.UserContext(), c.Params("listingID"), c.Params("requestID"), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, result)
}

func (h *PurchaseHandler) Decline(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	var input validation.DeclineRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "invalid request format")
		}
	}
	if err := validation.Struct(input); err != nil {
		return handleError(c, err)
	}

	req, err := h.purchaseService.DeclineRequest(c.UserContext(), c.Params("listingID"), c.Params("requestID"), claims.UserID(), input.Reason)
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, req)
}

func (h *PurchaseHandler) Mine(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}
	reqs, err := h.purchaseService.ListRequestsForBuyer(c.UserContext(), claims.UserID())
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, reqs)
}
