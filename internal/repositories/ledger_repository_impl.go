package repositories

import (
	"context"
	"time"

	"brokebuy/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.WalletLedgerEntry) error {
	return wrapErr("append ledger entry", r.db.WithContext(ctx).Create(entry).Error)
}

func (r *ledgerRepository) CreateCreditTransaction(ctx context.Context, ct *models.CreditTransaction) error {
	return wrapErr("create credit transaction", r.db.WithContext(ctx).Create(ct).Error)
}

func (r *ledgerRepository) ListEntries(ctx context.Context, userID string, limit, offset int) ([]models.WalletLedgerEntry, int64, error) {
	var entries []models.WalletLedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WalletLedgerEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count ledger entries", err)
	}
	err := query.
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, wrapErr("list ledger entries", err)
	}
	return entries, total, nil
}

func (r *ledgerRepository) SignedSum(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0)", models.DirectionCredit).
		Where("user_id = ?", userID).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapErr("sum ledger", err)
	}
	return sum, nil
}

func (r *ledgerRepository) SumCredits(ctx context.Context, userID string, sources []string, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND direction = ? AND source IN ? AND timestamp >= ?",
			userID, models.DirectionCredit, sources, since).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapErr("sum credits", err)
	}
	return sum, nil
}

func (r *ledgerRepository) CountCreditTransactions(ctx context.Context, filter CreditFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, wrapErr("count credit transactions", err)
	}
	return count, nil
}

func (r *ledgerRepository) ListCreditTransactions(ctx context.Context, filter CreditFilter, limit, offset int) ([]models.CreditTransaction, int64, error) {
	var txs []models.CreditTransaction
	var total int64

	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count credit transactions", err)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, 0, wrapErr("list credit transactions", err)
	}
	return txs, total, nil
}

func (r *ledgerRepository) SummarizeCredits(ctx context.Context, filter CreditFilter) ([]CreditTypeStats, error) {
	var stats []CreditTypeStats
	err := r.filtered(ctx, filter).
		Select("transaction_type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total, COALESCE(AVG(amount), 0) AS average").
		Group("transaction_type").
		Order("transaction_type").
		Scan(&stats).Error
	if err != nil {
		return nil, wrapErr("summarize credits", err)
	}
	for i := range stats {
		stats[i].Average = stats[i].Average.Round(2)
	}
	return stats, nil
}

func (r *ledgerRepository) filtered(ctx context.Context, filter CreditFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.CreditTransaction{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("transaction_type = ?", filter.Type)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	return query
}
