package validation

import "github.com/shopspring/decimal"

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type CreateListingRequest struct {
	Title string          `json:"title" validate:"required,max=200"`
	Price decimal.Decimal `json:"price" validate:"required,gt=0"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,max=36"`
	ListingID  string `json:"listing_id" validate:"required,max=36"`
	Body       string `json:"body" validate:"required,max=2000"`
}

type CreatePurchaseRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type DeclineRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}
