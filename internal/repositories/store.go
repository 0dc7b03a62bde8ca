// Package repositories provides data access layer implementations.
// Store is the unit of work shared by every service: repositories obtained
// from the Store passed to WithinTransaction all see and write the same
// transaction.
package repositories

import (
	"context"
	"errors"
	"time"

	"brokebuy/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row
	// because the record is no longer in the expected state.
	ErrConflict = errors.New("conditional update conflict")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Store gives access to every repository and to transactions.
type Store interface {
	Users() UserRepository
	Listings() ListingRepository
	PurchaseRequests() PurchaseRequestRepository
	Ledger() LedgerRepository
	Messages() MessageRepository

	// WithinTransaction runs fn as one atomic unit. The Store handed to fn
	// is bound to the transaction; any error returned by fn rolls back all
	// of its writes.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository reads and writes the wallet-relevant part of users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetForUpdate reads a user and holds a row lock on it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, at time.Time) error
	ListBelowBalance(ctx context.Context, threshold decimal.Decimal, limit int) ([]models.User, error)
}

// WindowCount is the number of records in a time window and the oldest
// record's timestamp (nil when the window is empty).
type WindowCount struct {
	Count  int64
	Oldest *time.Time
}

// ListingRepository covers the sale state of listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	// MarkSold flips the listing to sold only if it is still unsold and
	// returns ErrConflict otherwise.
	MarkSold(ctx context.Context, id, buyerID string, soldAt time.Time) error
	CreatedSince(ctx context.Context, sellerID string, since time.Time) (WindowCount, error)

	SalesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Sale, error)
	SalesByBuyer(ctx context.Context, buyerID string, since time.Time) ([]models.Sale, error)
	CountSalesBetween(ctx context.Context, sellerID, buyerID string, since time.Time) (int64, error)
}

// PurchaseRequestRepository stores buy requests.
type PurchaseRequestRepository interface {
	// Create stores a request and returns ErrDuplicate if the buyer already
	// has an open request on the listing.
	Create(ctx context.Context, req *models.PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error)
	FindOpen(ctx context.Context, listingID, buyerID string) (*models.PurchaseRequest, error)
	ListByListing(ctx context.Context, listingID string) ([]models.PurchaseRequest, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error)
	// Transition moves a pending request to a terminal status and returns
	// ErrConflict if it was no longer pending.
	Transition(ctx context.Context, id string, to models.RequestStatus, reason string, at time.Time) error
	// DeclinePending declines every pending request on a listing except
	// exceptID and returns the declined requests.
	DeclinePending(ctx context.Context, listingID, exceptID, reason string, at time.Time) ([]models.PurchaseRequest, error)
}

// CreditFilter narrows credit transaction queries. Zero values match all.
type CreditFilter struct {
	UserID string
	Type   models.CreditTransactionType
	Since  time.Time
}

// CreditTypeStats aggregates credit transactions of one type.
type CreditTypeStats struct {
	TransactionType models.CreditTransactionType `json:"transaction_type"`
	Count           int64                        `json:"count"`
	Total           decimal.Decimal              `json:"total_amount"`
	Average         decimal.Decimal              `json:"avg_amount"`
}

// LedgerRepository is the append-only wallet ledger and its credit detail.
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.WalletLedgerEntry) error
	CreateCreditTransaction(ctx context.Context, ct *models.CreditTransaction) error

	ListEntries(ctx context.Context, userID string, limit, offset int) ([]models.WalletLedgerEntry, int64, error)
	SignedSum(ctx context.Context, userID string) (decimal.Decimal, error)
	SumCredits(ctx context.Context, userID string, sources []string, since time.Time) (decimal.Decimal, error)

	CountCreditTransactions(ctx context.Context, filter CreditFilter) (int64, error)
	ListCreditTransactions(ctx context.Context, filter CreditFilter, limit, offset int) ([]models.CreditTransaction, int64, error)
	SummarizeCredits(ctx context.Context, filter CreditFilter) ([]CreditTypeStats, error)
}

// MessageRepository stores chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	SentSince(ctx context.Context, senderID string, since time.Time) (WindowCount, error)
}
