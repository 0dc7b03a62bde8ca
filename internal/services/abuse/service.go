// Package abuse flags circular and rapid back-and-forth trading between two
// users from their completed sales.
package abuse

import (
	"context"
	"fmt"
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/logger"
	"brokebuy/internal/metrics"
	"brokebuy/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Names of the checks that can flag a trade.
const (
	CheckDirect  = "direct"
	CheckComplex = "complex"
	CheckRapid   = "rapid"
)

// maxGraphNodes bounds how many users the complex check will expand.
const maxGraphNodes = 200

type Verdict struct {
	Flagged bool   `json:"flagged"`
	Check   string `json:"check,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type TradingStats struct {
	UserID         string `json:"user_id"`
	Days           int    `json:"days"`
	SalesCount     int    `json:"sales_count"`
	PurchasesCount int    `json:"purchases_count"`
	UniquePartners int    `json:"unique_partners"`
	TotalTrades    int    `json:"total_trades"`
}

type Config struct {
	Limits config.Limits
	Now    func() time.Time
}

type Service interface {
	DetectCircularTrade(ctx context.Context, userA, userB string) (Verdict, error)
	GetTradingStats(ctx context.Context, userID string, days int) (*TradingStats, error)
}

type service struct {
	listings repositories.ListingRepository
	metrics  metrics.Collector
	limits   config.Limits
	now      func() time.Time
}

func NewService(store repositories.Store, collector metrics.Collector, cfg Config) Service {
	if store == nil {
		panic("store is required")
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		listings: store.Listings(),
		metrics:  collector,
		limits:   cfg.Limits,
		now:      cfg.Now,
	}
}

func (s *service) DetectCircularTrade(ctx context.Context, userA, userB string) (Verdict, error) {
	now := s.now().UTC()
	since := now.Add(-s.limits.AbuseWindow)

	verdict, err := s.detect(ctx, userA, userB, since, now)
	if err != nil {
		return Verdict{}, err
	}
	if verdict.Flagged {
		s.metrics.RecordAbuseFlag(verdict.Check)
		logger.WithFields(logrus.Fields{
			"user_a": userA,
			"user_b": userB,
			"check":  verdict.Check,
		}).Warn(verdict.Reason)
	}
	return verdict, nil
}

func (s *service) detect(ctx context.Context, userA, userB string, since, now time.Time) (Verdict, error) {
	aToB, err := s.listings.CountSalesBetween(ctx, userA, userB, since)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count sales: %w", err)
	}
	bToA, err := s.listings.CountSalesBetween(ctx, userB, userA, since)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count sales: %w", err)
	}
	if aToB > 0 && bToA > 0 {
		return Verdict{
			Flagged: true,
			Check:   CheckDirect,
			Reason:  "direct circular trade: both users have sold items to each other recently",
		}, nil
	}

	// The graph walk only runs for users that already trade with each other.
	if aToB > 0 || bToA > 0 {
		g := newTradeGraph(s.listings, since)
		cyclic, err := g.cycleThrough(ctx, userA)
		if err != nil {
			return Verdict{}, err
		}
		if cyclic {
			return Verdict{
				Flagged: true,
				Check:   CheckComplex,
				Reason:  "complex circular trade pattern detected",
			}, nil
		}
	}

	rapidSince := now.Add(-s.limits.RapidWindow)
	recentAToB, err := s.listings.CountSalesBetween(ctx, userA, userB, rapidSince)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count sales: %w", err)
	}
	recentBToA, err := s.listings.CountSalesBetween(ctx, userB, userA, rapidSince)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count sales: %w", err)
	}
	if total := recentAToB + recentBToA; total > int64(s.limits.RapidTradeThreshold) {
		return Verdict{
			Flagged: true,
			Check:   CheckRapid,
			Reason: fmt.Sprintf("rapid back-and-forth trading: %d trades in %s",
				total, s.limits.RapidWindow),
		}, nil
	}

	return Verdict{}, nil
}

func (s *service) GetTradingStats(ctx context.Context, userID string, days int) (*TradingStats, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	sales, err := s.listings.SalesBySeller(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	purchases, err := s.listings.SalesByBuyer(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	partners := make(map[string]struct{})
	for _, sale := range sales {
		partners[sale.BuyerID] = struct{}{}
	}
	for _, p := range purchases {
		partners[p.SellerID] = struct{}{}
	}

	return &TradingStats{
		UserID:         userID,
		Days:           days,
		SalesCount:     len(sales),
		PurchasesCount: len(purchases),
		UniquePartners: len(partners),
		TotalTrades:    len(sales) + len(purchases),
	}, nil
}
