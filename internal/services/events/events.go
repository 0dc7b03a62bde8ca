// Package events defines the notification-worthy events of the marketplace
// core and the publishers that hand them to the delivery collaborator.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindRequestCreated    Kind = "request_created"
	KindRequestAccepted   Kind = "request_accepted"
	KindRequestDeclined   Kind = "request_declined"
	KindAutoRefillApplied Kind = "auto_refill_applied"
	KindTradeFlagged      Kind = "trade_flagged"
)

// Event is implemented by every concrete event struct below.
type Event interface {
	Kind() Kind
	RecipientID() string
	OccurredAt() time.Time
}

// Role of the recipient of a RequestCreated event.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

type RequestCreated struct {
	Recipient string          `json:"recipient"`
	Role      string          `json:"role"`
	RequestID string          `json:"request_id"`
	ListingID string          `json:"listing_id"`
	BuyerID   string          `json:"buyer_id"`
	SellerID  string          `json:"seller_id"`
	Price     decimal.Decimal `json:"price"`
	At        time.Time       `json:"at"`
}

type RequestAccepted struct {
	Recipient string          `json:"recipient"`
	RequestID string          `json:"request_id"`
	ListingID string          `json:"listing_id"`
	SellerID  string          `json:"seller_id"`
	Price     decimal.Decimal `json:"price"`
	At        time.Time       `json:"at"`
}

type RequestDeclined struct {
	Recipient string    `json:"recipient"`
	RequestID string    `json:"request_id"`
	ListingID string    `json:"listing_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

type AutoRefillApplied struct {
	Recipient       string          `json:"recipient"`
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	At              time.Time       `json:"at"`
}

// TradeFlagged goes to the moderation queue; Recipient is ModerationRecipient.
type TradeFlagged struct {
	Recipient string    `json:"recipient"`
	RequestID string    `json:"request_id"`
	ListingID string    `json:"listing_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Check     string    `json:"check"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// ModerationRecipient addresses events meant for moderators.
const ModerationRecipient = "moderation"

func (e RequestCreated) Kind() Kind            { return KindRequestCreated }
func (e RequestCreated) RecipientID() string   { return e.Recipient }
func (e RequestCreated) OccurredAt() time.Time { return e.At }

func (e RequestAccepted) Kind() Kind            { return KindRequestAccepted }
func (e RequestAccepted) RecipientID() string   { return e.Recipient }
func (e RequestAccepted) OccurredAt() time.Time { return e.At }

func (e RequestDeclined) Kind() Kind            { return KindRequestDeclined }
func (e RequestDeclined) RecipientID() string   { return e.Recipient }
func (e RequestDeclined) OccurredAt() time.Time { return e.At }

func (e AutoRefillApplied) Kind() Kind            { return KindAutoRefillApplied }
func (e AutoRefillApplied) RecipientID() string   { return e.Recipient }
func (e AutoRefillApplied) OccurredAt() time.Time { return e.At }

func (e TradeFlagged) Kind() Kind            { return KindTradeFlagged }
func (e TradeFlagged) RecipientID() string   { return e.Recipient }
func (e TradeFlagged) OccurredAt() time.Time { return e.At }
