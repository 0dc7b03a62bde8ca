package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction of a ledger entry.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Debit sources. Credits use their CreditTransactionType as source.
const (
	LedgerSourcePurchase = "purchase"
	LedgerSourceDebit    = "debit"
)

// WalletLedgerEntry is an immutable record of one balance-affecting event.
// Rows are inserted and never updated or deleted.
type WalletLedgerEntry struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string          `gorm:"type:varchar(36);not null;index:idx_ledger_user_time,priority:1" json:"user_id"`
	Direction   Direction       `gorm:"type:varchar(8);not null" json:"direction"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Note        string          `json:"note"`
	Source      string          `gorm:"type:varchar(32);not null" json:"source"`
	ReferenceID string          `gorm:"type:varchar(36)" json:"reference_id,omitempty"`
	Timestamp   time.Time       `gorm:"not null;index:idx_ledger_user_time,priority:2" json:"timestamp"`
}

// Signed returns the amount with the sign of its direction.
func (e WalletLedgerEntry) Signed() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

func (e *WalletLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
