package wallet

import (
	"context"
	"fmt"

	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/utils/timeutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func (s *service) GetLedgerHistory(ctx context.Context, userID string, page, limit int) (*LedgerPage, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, translateUserErr(err)
	}

	page, limit = clampPage(page, limit)
	entries, total, err := s.store.Ledger().ListEntries(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return &LedgerPage{
		Page:    newPage(page, limit, total),
		Entries: entries,
	}, nil
}

func (s *service) GetCreditTransactions(ctx context.Context, userID string, page, limit int, txType models.CreditTransactionType) (*CreditPage, error) {
	page, limit = clampPage(page, limit)
	filter := repositories.CreditFilter{UserID: userID, Type: txType}
	txs, total, err := s.store.Ledger().ListCreditTransactions(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	return &CreditPage{
		Page:         newPage(page, limit, total),
		Transactions: txs,
	}, nil
}

// GetCreditSummary totals credits since UTC midnight days days ago. An
// empty userID summarizes every user.
func (s *service) GetCreditSummary(ctx context.Context, userID string, days int) (*CreditSummary, error) {
	if days < 0 {
		days = 0
	}
	now := s.clock()
	since := timeutil.DaysAgo(now, days)

	stats, err := s.store.Ledger().SummarizeCredits(ctx, repositories.CreditFilter{
		UserID: userID,
		Since:  since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize credits: %w", err)
	}

	summary := &CreditSummary{
		UserID:             userID,
		Days:               days,
		PeriodStart:        since,
		PeriodEnd:          now,
		TotalCredits:       decimal.Zero,
		ManualTopupAmount:  decimal.Zero,
		SaleProceedsAmount: decimal.Zero,
		RefundAmount:       decimal.Zero,
		AdminCreditAmount:  decimal.Zero,
	}
	for _, st := range stats {
		if st.TransactionType == models.CreditAutoRefill {
			summary.AutoRefillCount += st.Count
			continue
		}
		summary.TotalCredits = summary.TotalCredits.Add(st.Total)
		summary.TransactionCount += st.Count

		switch st.TransactionType {
		case models.CreditManualTopup:
			summary.ManualTopupCount = st.Count
			summary.ManualTopupAmount = st.Total
		case models.CreditSaleProceeds:
			summary.SaleProceedsAmount = st.Total
		case models.CreditRefund:
			summary.RefundAmount = st.Total
		case models.CreditAdmin:
			summary.AdminCreditAmount = st.Total
		}
	}
	return summary, nil
}

func (s *service) GetMoneyFlowStats(ctx context.Context, days int) (*MoneyFlowStats, error) {
	if days <= 0 {
		days = 7
	}
	since := timeutil.DaysAgo(s.clock(), days)

	stats, err := s.store.Ledger().SummarizeCredits(ctx, repositories.CreditFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize credits: %w", err)
	}

	flow := &MoneyFlowStats{
		Days:        days,
		Since:       since,
		ByType:      stats,
		Minted:      decimal.Zero,
		Transferred: decimal.Zero,
	}
	for _, st := range stats {
		if st.TransactionType.Minted() {
			flow.Minted = flow.Minted.Add(st.Total)
		} else {
			flow.Transferred = flow.Transferred.Add(st.Total)
		}
	}
	return flow, nil
}

// Reconcile compares the stored balance with the signed ledger sum. The
// ledger is authoritative; drift is reported, not repaired.
func (s *service) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}
	sum, err := s.store.Ledger().SignedSum(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}

	drift := user.WalletBalance.Sub(sum)
	rec := &Reconciliation{
		UserID:        userID,
		CachedBalance: user.WalletBalance,
		LedgerBalance: sum,
		Drift:         drift,
		Consistent:    drift.IsZero(),
	}
	if !rec.Consistent {
		logger.WithFields(logrus.Fields{
			"user_id": userID,
			"cached":  user.WalletBalance.StringFixed(2),
			"ledger":  sum.StringFixed(2),
		}).Warn("wallet balance drifted from ledger")
	}
	return rec, nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func newPage(page, limit int, total int64) Page {
	pages := total / int64(limit)
	if total%int64(limit) > 0 {
		pages++
	}
	return Page{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
