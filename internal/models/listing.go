package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing carries the sale state of an item. It transitions to sold exactly
// once, when a purchase request is accepted.
type Listing struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	SellerID  string          `gorm:"type:varchar(36);not null;index:idx_listings_seller_sold,priority:1" json:"seller_id"`
	BuyerID   *string         `gorm:"type:varchar(36);index:idx_listings_buyer_sold,priority:1" json:"buyer_id,omitempty"`
	IsSold    bool            `gorm:"not null;default:false" json:"is_sold"`
	SoldAt    *time.Time      `gorm:"index:idx_listings_seller_sold,priority:2;index:idx_listings_buyer_sold,priority:2" json:"sold_at,omitempty"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Sale is a completed trade, seller to buyer.
type Sale struct {
	ListingID string
	SellerID  string
	BuyerID   string
	Price     decimal.Decimal
	SoldAt    time.Time
}
