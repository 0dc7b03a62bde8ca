package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreditTransactionType string

const (
	CreditAutoRefill   CreditTransactionType = "auto_refill"
	CreditManualTopup  CreditTransactionType = "manual_topup"
	CreditSaleProceeds CreditTransactionType = "sale_proceeds"
	CreditRefund       CreditTransactionType = "refund"
	CreditAdmin        CreditTransactionType = "admin_credit"
)

// Valid reports whether t is a known credit type.
func (t CreditTransactionType) Valid() bool {
	switch t {
	case CreditAutoRefill, CreditManualTopup, CreditSaleProceeds, CreditRefund, CreditAdmin:
		return true
	}
	return false
}

// Minted reports whether the credit brings new funds into the system, as
// opposed to moving funds between wallets.
func (t CreditTransactionType) Minted() bool {
	switch t {
	case CreditAutoRefill, CreditManualTopup, CreditAdmin:
		return true
	}
	return false
}

// MintedCreditSources lists the ledger sources counted against the daily
// credit cap.
var MintedCreditSources = []string{
	string(CreditAutoRefill),
	string(CreditManualTopup),
	string(CreditAdmin),
}

// CreditTransaction is the detailed record of an inbound credit.
type CreditTransaction struct {
	ID              string                `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string                `gorm:"type:varchar(36);not null;index:idx_credit_user_time,priority:1" json:"user_id"`
	Amount          decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"amount"`
	TransactionType CreditTransactionType `gorm:"type:varchar(32);not null;index" json:"transaction_type"`
	ReferenceID     string                `gorm:"type:varchar(36)" json:"reference_id,omitempty"`
	Description     string                `json:"description,omitempty"`
	IsAutoRefill    bool                  `gorm:"not null;default:false" json:"is_auto_refill"`
	PreviousBalance decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"previous_balance"`
	NewBalance      decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"new_balance"`
	CreatedAt       time.Time             `gorm:"not null;index:idx_credit_user_time,priority:2" json:"created_at"`
}

func (ct *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	return nil
}
