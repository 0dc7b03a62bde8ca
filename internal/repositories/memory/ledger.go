package memory

import (
	"context"
	"sort"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"

	"github.com/shopspring/decimal"
)

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(ctx context.Context, entry *models.WalletLedgerEntry) error {
	return r.s.do(ctx, "ledger.append", func(st *state) error {
		entry.ID = newID(entry.ID)
		entry.Timestamp = stamp(entry.Timestamp)
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (r ledgerRepo) CreateCreditTransaction(ctx context.Context, ct *models.CreditTransaction) error {
	return r.s.do(ctx, "ledger.create_credit_transaction", func(st *state) error {
		ct.ID = newID(ct.ID)
		ct.CreatedAt = stamp(ct.CreatedAt)
		st.credits = append(st.credits, *ct)
		return nil
	})
}

func (r ledgerRepo) ListEntries(ctx context.Context, userID string, limit, offset int) ([]models.WalletLedgerEntry, int64, error) {
	var entries []models.WalletLedgerEntry
	err := r.s.do(ctx, "ledger.list_entries", func(st *state) error {
		for i := len(st.ledger) - 1; i >= 0; i-- {
			if st.ledger[i].UserID == userID {
				entries = append(entries, st.ledger[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	total := int64(len(entries))
	return page(entries, limit, offset), total, nil
}

func (r ledgerRepo) SignedSum(ctx context.Context, userID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.s.do(ctx, "ledger.signed_sum", func(st *state) error {
		for _, e := range st.ledger {
			if e.UserID == userID {
				sum = sum.Add(e.Signed())
			}
		}
		return nil
	})
	return sum, err
}

func (r ledgerRepo) SumCredits(ctx context.Context, userID string, sources []string, since time.Time) (decimal.Decimal, error) {
	wanted := make(map[string]bool, len(sources))
	for _, s := range sources {
		wanted[s] = true
	}
	sum := decimal.Zero
	err := r.s.do(ctx, "ledger.sum_credits", func(st *state) error {
		for _, e := range st.ledger {
			if e.UserID == userID && e.Direction == models.DirectionCredit &&
				wanted[e.Source] && !e.Timestamp.Before(since) {
				sum = sum.Add(e.Amount)
			}
		}
		return nil
	})
	return sum, err
}

func (r ledgerRepo) CountCreditTransactions(ctx context.Context, filter repositories.CreditFilter) (int64, error) {
	txs, err := r.credits(ctx, "ledger.count_credit_transactions", filter)
	return int64(len(txs)), err
}

func (r ledgerRepo) ListCreditTransactions(ctx context.Context, filter repositories.CreditFilter, limit, offset int) ([]models.CreditTransaction, int64, error) {
	txs, err := r.credits(ctx, "ledger.list_credit_transactions", filter)
	if err != nil {
		return nil, 0, err
	}
	return page(txs, limit, offset), int64(len(txs)), nil
}

func (r ledgerRepo) SummarizeCredits(ctx context.Context, filter repositories.CreditFilter) ([]repositories.CreditTypeStats, error) {
	txs, err := r.credits(ctx, "ledger.summarize_credits", filter)
	if err != nil {
		return nil, err
	}

	byType := make(map[models.CreditTransactionType]*repositories.CreditTypeStats)
	for _, ct := range txs {
		stats, ok := byType[ct.TransactionType]
		if !ok {
			stats = &repositories.CreditTypeStats{TransactionType: ct.TransactionType}
			byType[ct.TransactionType] = stats
		}
		stats.Count++
		stats.Total = stats.Total.Add(ct.Amount)
	}

	result := make([]repositories.CreditTypeStats, 0, len(byType))
	for _, stats := range byType {
		stats.Average = stats.Total.Div(decimal.NewFromInt(stats.Count)).Round(2)
		result = append(result, *stats)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TransactionType < result[j].TransactionType
	})
	return result, nil
}

// credits returns matching credit transactions newest first.
func (r ledgerRepo) credits(ctx context.Context, op string, filter repositories.CreditFilter) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := r.s.do(ctx, op, func(st *state) error {
		for i := len(st.credits) - 1; i >= 0; i-- {
			ct := st.credits[i]
			if filter.UserID != "" && ct.UserID != filter.UserID {
				continue
			}
			if filter.Type != "" && ct.TransactionType != filter.Type {
				continue
			}
			if !filter.Since.IsZero() && ct.CreatedAt.Before(filter.Since) {
				continue
			}
			txs = append(txs, ct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
