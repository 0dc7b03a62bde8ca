package handlers

import (
	"brokebuy/internal/services/marketplace"
	"brokebuy/internal/utils/response"
	"brokebuy/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type MarketplaceHandler struct {
	marketplaceService marketplace.Service
}

func NewMarketplaceHandler(marketplaceService marketplace.Service) *MarketplaceHandler {
	return &MarketplaceHandler{marketplaceService: marketplaceService}
}

func (h *MarketplaceHandler) CreateListing(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	var input validation.CreateListingRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return handleError(c, err)
	}

	listing, err := h.marketplaceService.CreateListing(c.UserContext(), marketplace.CreateListingInput{
		SellerID: claims.UserID(),
		Title:    input.Title,
		Price:    input.Price,
	})
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, listing)
}

func (h *MarketplaceHandler) GetListing(c *fiber.Ctx) error {
	listing, err := h.marketplaceService.GetListing(c.UserContext(), c.Params("listingID"))
	if err != nil {
		return handleError(c, err)
	}
	return response.Success(c, listing)
}

func (h *MarketplaceHandler) SendMessage(c *fiber.Ctx) error {
	claims, ok := currentUser(c)
	if !ok {
		return nil
	}

	var input validation.SendMessageRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return handleError(c, err)
	}

	msg, err := h.marketplaceService.SendMessage(c.UserContext(), marketplace.SendMessageInput{
		SenderID:   claims.UserID(),
		ReceiverID: input.ReceiverID,
		ListingID:  input.ListingID,
		Body:       input.Body,
	})
	if err != nil {
		return handleError(c, err)
	}
	return response.Created(c, msg)
}
