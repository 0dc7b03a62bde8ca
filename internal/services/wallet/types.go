package wallet

import (
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"

	"github.com/shopspring/decimal"
)

// Config holds the wallet limits and the clock used for day windows.
type Config struct {
	Limits config.Limits
	Now    func() time.Time
}

// CreditInput describes an inbound credit.
type CreditInput struct {
	UserID       string
	Amount       decimal.Decimal
	Type         models.CreditTransactionType
	Note         string
	ReferenceID  string
	IsAutoRefill bool
}

// BalanceChange is the result of a debit.
type BalanceChange struct {
	UserID          string                    `json:"user_id"`
	Amount          decimal.Decimal           `json:"amount"`
	PreviousBalance decimal.Decimal           `json:"previous_balance"`
	NewBalance      decimal.Decimal           `json:"new_balance"`
	Entry           *models.WalletLedgerEntry `json:"entry"`
}

// RefillResult reports whether a refill happened and the balances around it.
type RefillResult struct {
	Refilled        bool                      `json:"refilled"`
	Amount          decimal.Decimal           `json:"amount"`
	PreviousBalance decimal.Decimal           `json:"previous_balance"`
	NewBalance      decimal.Decimal           `json:"new_balance"`
	Reason          string                    `json:"reason"`
	Transaction     *models.CreditTransaction `json:"transaction,omitempty"`
}

// SweepResult summarizes one pass of SweepAutoRefill.
type SweepResult struct {
	Checked  int             `json:"checked"`
	Refilled int             `json:"refilled"`
	Failed   int             `json:"failed"`
	Credited decimal.Decimal `json:"credited"`
}

// SaleSettlement is the funds movement of an accepted purchase.
type SaleSettlement struct {
	BuyerID   string
	SellerID  string
	Amount    decimal.Decimal
	ListingID string
	RequestID string
}

// Settlement is the outcome of SettleSale.
type Settlement struct {
	BuyerBalance  decimal.Decimal
	SellerBalance decimal.Decimal
	Debit         *models.WalletLedgerEntry
	Credit        *models.CreditTransaction
}

// Page describes one page of a paged query.
type Page struct {
	Page       int   `json:"current_page"`
	Limit      int   `json:"per_page"`
	Total      int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
}

type LedgerPage struct {
	Page
	Entries []models.WalletLedgerEntry `json:"entries"`
}

type CreditPage struct {
	Page
	Transactions []models.CreditTransaction `json:"transactions"`
}

// CreditSummary totals a user's credits, or everyone's when UserID is
// empty. Totals exclude auto-refills, which are counted separately.
type CreditSummary struct {
	UserID             string          `json:"user_id,omitempty"`
	Days               int             `json:"days"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	TotalCredits       decimal.Decimal `json:"total_credits"`
	TransactionCount   int64           `json:"transaction_count"`
	ManualTopupCount   int64           `json:"manual_topup_count"`
	ManualTopupAmount  decimal.Decimal `json:"manual_topup_amount"`
	SaleProceedsAmount decimal.Decimal `json:"sale_proceeds_amount"`
	RefundAmount       decimal.Decimal `json:"refund_amount"`
	AdminCreditAmount  decimal.Decimal `json:"admin_credit_amount"`
	AutoRefillCount    int64           `json:"auto_refill_count"`
}

// MoneyFlowStats breaks down all credits of a period by type.
type MoneyFlowStats struct {
	Days        int                            `json:"days"`
	Since       time.Time                      `json:"since"`
	ByType      []repositories.CreditTypeStats `json:"by_type"`
	Minted      decimal.Decimal                `json:"minted"`
	Transferred decimal.Decimal                `json:"transferred"`
}

// Reconciliation compares the cached balance with the ledger.
type Reconciliation struct {
	UserID        string          `json:"user_id"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
}
