package purchase

import (
	"context"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/abuse"
	"brokebuy/internal/services/wallet"
)

// Service runs the purchase request lifecycle of listings.
type Service interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*models.PurchaseRequest, error)
	AcceptRequest(ctx context.Context, listingID, requestID, actingUserID string) (*AcceptResult, error)
	DeclineRequest(ctx context.Context, listingID, requestID, actingUserID, reason string) (*models.PurchaseRequest, error)

	GetRequest(ctx context.Context, requestID, actingUserID string) (*models.PurchaseRequest, error)
	ListRequestsForListing(ctx context.Context, listingID, actingUserID string) ([]models.PurchaseRequest, error)
	ListRequestsForBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error)
}

// WalletService is the part of the wallet the engine moves funds through.
type WalletService interface {
	SettleSale(ctx context.Context, tx repositories.Store, sale wallet.SaleSettlement) (*wallet.Settlement, error)
	InvalidateBalances(ctx context.Context, userIDs ...string)
}

// AbuseDetector screens a trade before funds move.
type AbuseDetector interface {
	DetectCircularTrade(ctx context.Context, userA, userB string) (abuse.Verdict, error)
}

// Locker provides mutual exclusion per key across service instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
