package wallet

import (
	"context"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/ratelimit"

	"github.com/shopspring/decimal"
)

// Service defines the wallet service interface
type Service interface {
	// Balance operations
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	Credit(ctx context.Context, in CreditInput) (*models.CreditTransaction, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, note string) (*BalanceChange, error)

	// Capped inflows
	TopUp(ctx context.Context, userID string, amount decimal.Decimal, note string) (*models.CreditTransaction, error)
	CheckAndAutoRefill(ctx context.Context, userID string) (*RefillResult, error)
	ManualRefillToTarget(ctx context.Context, userID string) (*RefillResult, error)
	SweepAutoRefill(ctx context.Context) (*SweepResult, error)

	// Purchase settlement, run inside the caller's transaction
	SettleSale(ctx context.Context, tx repositories.Store, sale SaleSettlement) (*Settlement, error)
	InvalidateBalances(ctx context.Context, userIDs ...string)

	// Ledger queries
	GetLedgerHistory(ctx context.Context, userID string, page, limit int) (*LedgerPage, error)
	GetCreditTransactions(ctx context.Context, userID string, page, limit int, txType models.CreditTransactionType) (*CreditPage, error)
	GetCreditSummary(ctx context.Context, userID string, days int) (*CreditSummary, error)
	GetMoneyFlowStats(ctx context.Context, days int) (*MoneyFlowStats, error)
	Reconcile(ctx context.Context, userID string) (*Reconciliation, error)
}

// CreditLimiter gates top-ups on the daily credit volume.
type CreditLimiter interface {
	CanCredit(ctx context.Context, userID string, amount decimal.Decimal) (ratelimit.Decision, error)
}

// BalanceCache is a read-through cache of user balances. Every
// invalidation bumps the user's version, and SetBalance only stores a value
// read under the version that is still current.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, bool, error)
	BalanceVersion(ctx context.Context, userID string) (int64, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal, version int64) error
	InvalidateBalance(ctx context.Context, userIDs ...string) error
}

type noopCache struct{}

func (noopCache) GetBalance(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (noopCache) BalanceVersion(context.Context, string) (int64, error) { return 0, nil }
func (noopCache) SetBalance(context.Context, string, decimal.Decimal, int64) error {
	return nil
}
func (noopCache) InvalidateBalance(context.Context, ...string) error { return nil }
