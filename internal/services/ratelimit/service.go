// Package ratelimit answers "is this action allowed right now" for message
// sends, listing creation and wallet credits. Every check recomputes its
// window from stored history; nothing here mutates state.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"brokebuy/internal/config"
	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/metrics"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/utils/timeutil"

	"github.com/shopspring/decimal"
)

// Actions reported to metrics.
const (
	ActionSendMessage   = "send_message"
	ActionCreateListing = "create_listing"
	ActionCredit        = "credit"
)

// Decision is the answer of a limiter check.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
	Kind       apperrors.Kind
}

// Err returns nil when the action is allowed and a DomainError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.New(d.Kind, d.Reason)
}

type Config struct {
	Limits config.Limits
	Now    func() time.Time
}

type Service interface {
	CanSendMessage(ctx context.Context, senderID string) (Decision, error)
	CanCreateListing(ctx context.Context, sellerID string) (Decision, error)
	CanCredit(ctx context.Context, userID string, amount decimal.Decimal) (Decision, error)
}

type service struct {
	store   repositories.Store
	metrics metrics.Collector
	limits  config.Limits
	now     func() time.Time
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
		store:   store,
		metrics: collector,
		limits:  cfg.Limits,
		now:     cfg.Now,
	}
}

func (s *service) CanSendMessage(ctx context.Context, senderID string) (Decision, error) {
	now := s.now().UTC()
	window := s.limits.MessageWindow
	count, err := s.store.Messages().SentSince(ctx, senderID, now.Add(-window))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count messages: %w", err)
	}
	if count.Count < int64(s.limits.MaxMessagesPerWindow) {
		return Decision{Allowed: true}, nil
	}
	s.metrics.RecordRateLimited(ActionSendMessage)
	return Decision{
		Reason: fmt.Sprintf("too many messages: %d allowed per %s",
			s.limits.MaxMessagesPerWindow, window),
		RetryAfter: retryAfter(count.Oldest, window, now),
		Kind:       apperrors.KindRateLimited,
	}, nil
}

func (s *service) CanCreateListing(ctx context.Context, sellerID string) (Decision, error) {
	now := s.now().UTC()
	window := s.limits.ListingWindow
	count, err := s.store.Listings().CreatedSince(ctx, sellerID, now.Add(-window))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count listings: %w", err)
	}
	if count.Count < int64(s.limits.MaxListingsPerWindow) {
		return Decision{Allowed: true}, nil
	}
	s.metrics.RecordRateLimited(ActionCreateListing)
	return Decision{
		Reason: fmt.Sprintf("too many listings: %d allowed per %s",
			s.limits.MaxListingsPerWindow, window),
		RetryAfter: retryAfter(count.Oldest, window, now),
		Kind:       apperrors.KindRateLimited,
	}, nil
}

// CanCredit checks the amount against the minted credit volume of the
// current UTC day.
func (s *service) CanCredit(ctx context.Context, userID string, amount decimal.Decimal) (Decision, error) {
	now := s.now().UTC()
	credited, err := s.store.Ledger().SumCredits(ctx, userID, models.MintedCreditSources, timeutil.StartOfDay(now))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to sum daily credits: %w", err)
	}
	if credited.Add(amount).LessThanOrEqual(s.limits.DailyCreditCap) {
		return Decision{Allowed: true}, nil
	}
	s.metrics.RecordRateLimited(ActionCredit)
	return Decision{
		Reason: fmt.Sprintf("daily credit limit of %s exceeded: %s already credited today",
			s.limits.DailyCreditCap.StringFixed(2), credited.StringFixed(2)),
		RetryAfter: timeutil.StartOfNextDay(now).Sub(now),
		Kind:       apperrors.KindDailyCreditLimitExceeded,
	}, nil
}

func retryAfter(oldest *time.Time, window time.Duration, now time.Time) time.Duration {
	if oldest == nil {
		return 0
	}
	wait := oldest.Add(window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
