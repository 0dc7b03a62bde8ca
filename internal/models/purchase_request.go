package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the state of a purchase request. Pending is the only
// non-terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Decline reasons set by the engine itself.
const (
	DeclineReasonListingSold       = "listing sold"
	DeclineReasonInsufficientFunds = "insufficient funds"
	DeclineReasonDefault           = "declined by seller"
)

// PurchaseRequest is a buyer's offer to buy a listing.
type PurchaseRequest struct {
	ID            string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ListingID     string        `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	BuyerID       string        `gorm:"type:varchar(36);not null;index" json:"buyer_id"`
	SellerID      string        `gorm:"type:varchar(36);not null;index" json:"seller_id"`
	Status        RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Note          string        `json:"note,omitempty"`
	DeclineReason string        `json:"decline_reason,omitempty"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (r *PurchaseRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsOpen reports whether the request still blocks a new request from the
// same buyer on the same listing.
func (r *PurchaseRequest) IsOpen() bool {
	return r.Status == RequestPending || r.Status == RequestAccepted
}
