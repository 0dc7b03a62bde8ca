package purchase

import (
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/models"

	"github.com/shopspring/decimal"
)

type Config struct {
	Limits config.Limits
	Now    func() time.Time
}

type CreateRequestInput struct {
	ListingID string
	BuyerID   string
	Note      string
}

// AcceptResult is returned by a successful accept.
type AcceptResult struct {
	Success       bool                     `json:"success"`
	Request       *models.PurchaseRequest  `json:"request"`
	Listing       *models.Listing          `json:"listing"`
	BuyerBalance  decimal.Decimal          `json:"buyer_balance"`
	SellerBalance decimal.Decimal          `json:"seller_balance"`
	Declined      []models.PurchaseRequest `json:"declined"`
}

// Operation names used for metrics.
const (
	opCreate  = "create_request"
	opAccept  = "accept_request"
	opDecline = "decline_request"
)

func listingLockKey(listingID string) string {
	return "listing:" + listingID
}
