package abuse

import (
	"context"
	"testing"
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/metrics"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, metrics.Noop{}, Config{
		Limits: config.DefaultLimits(),
		Now:    func() time.Time { return now },
	})
	return svc, store
}

func sell(t *testing.T, store *memory.Store, seller, buyer string, ago time.Duration) {
	t.Helper()
	soldAt := now.Add(-ago)
	b := buyer
	require.NoError(t, store.Listings().Create(context.Background(), &models.Listing{
		SellerID:  seller,
		BuyerID:   &b,
		IsSold:    true,
		SoldAt:    &soldAt,
		Price:     decimal.NewFromInt(100),
		CreatedAt: soldAt.Add(-time.Hour),
	}))
}

func TestDetectCircularTrade(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *memory.Store)
		a, b  string
		check string
	}{
		{
			name:  "no history",
			setup: func(t *testing.T, s *memory.Store) {},
			a:     "alice", b: "bob",
		},
		{
			name: "direct both ways",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "bob", 48*time.Hour)
				sell(t, s, "bob", "alice", 72*time.Hour)
			},
			a: "alice", b: "bob", check: CheckDirect,
		},
		{
			name: "direct outside window",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "bob", 48*time.Hour)
				sell(t, s, "bob", "alice", 8*24*time.Hour)
			},
			a: "alice", b: "bob",
		},
		{
			name: "three party cycle",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "bob", 48*time.Hour)
				sell(t, s, "bob", "carol", 47*time.Hour)
				sell(t, s, "carol", "alice", 46*time.Hour)
			},
			a: "alice", b: "bob", check: CheckComplex,
		},
		{
			name: "four party cycle",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "bob", 48*time.Hour)
				sell(t, s, "bob", "carol", 47*time.Hour)
				sell(t, s, "carol", "dave", 46*time.Hour)
				sell(t, s, "dave", "alice", 45*time.Hour)
			},
			a: "alice", b: "bob", check: CheckComplex,
		},
		{
			name: "cycle not involving the counterparty",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "carol", 48*time.Hour)
				sell(t, s, "carol", "dave", 47*time.Hour)
				sell(t, s, "dave", "alice", 46*time.Hour)
			},
			a: "alice", b: "bob",
		},
		{
			name: "chain without return",
			setup: func(t *testing.T, s *memory.Store) {
				sell(t, s, "alice", "bob", 48*time.Hour)
				sell(t, s, "bob", "carol", 47*time.Hour)
				sell(t, s, "carol", "dave", 46*time.Hour)
			},
			a: "alice", b: "bob",
		},
		{
			name: "rapid one way",
			setup: func(t *testing.T, s *memory.Store) {
				for i := 1; i <= 4; i++ {
					sell(t, s, "alice", "bob", time.Duration(i)*time.Hour)
				}
			},
			a: "alice", b: "bob", check: CheckRapid,
		},
		{
			name: "three recent trades is within threshold",
			setup: func(t *testing.T, s *memory.Store) {
				for i := 1; i <= 3; i++ {
					sell(t, s, "alice", "bob", time.Duration(i)*time.Hour)
				}
			},
			a: "alice", b: "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			tt.setup(t, store)

			verdict, err := svc.DetectCircularTrade(context.Background(), tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.check != "", verdict.Flagged)
			assert.Equal(t, tt.check, verdict.Check)
			if verdict.Flagged {
				assert.NotEmpty(t, verdict.Reason)
			}
		})
	}
}

func TestGetTradingStats(t *testing.T) {
	svc, store := newTestService(t)
	sell(t, store, "alice", "bob", time.Hour)
	sell(t, store, "alice", "bob", 2*time.Hour)
	sell(t, store, "alice", "carol", 3*time.Hour)
	sell(t, store, "dave", "alice", 4*time.Hour)
	sell(t, store, "erin", "alice", 40*24*time.Hour)

	stats, err := svc.GetTradingStats(context.Background(), "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SalesCount)
	assert.Equal(t, 1, stats.PurchasesCount)
	assert.Equal(t, 3, stats.UniquePartners)
	assert.Equal(t, 4, stats.TotalTrades)
}
