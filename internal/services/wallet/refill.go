package wallet

import (
	"context"
	"fmt"
	"time"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/events"
	"brokebuy/internal/utils/timeutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CheckAndAutoRefill credits a user below the refill threshold up to the
// refill target, at most MaxRefillsPerDay times per UTC day. When no refill
// is due nothing is written.
func (s *service) CheckAndAutoRefill(ctx context.Context, userID string) (result *RefillResult, err error) {
	defer s.observe(opAutoRefill, time.Now(), &err)

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}
	if !user.WalletBalance.LessThan(s.limits.RefillThreshold) {
		return noRefill(user.WalletBalance, ReasonAboveThreshold), nil
	}

	return s.refill(ctx, userID, TriggerAuto)
}

// ManualRefillToTarget tops the balance up to the refill target regardless
// of the threshold. It shares the daily refill count with auto-refills.
func (s *service) ManualRefillToTarget(ctx context.Context, userID string) (result *RefillResult, err error) {
	defer s.observe(opRefill, time.Now(), &err)
	return s.refill(ctx, userID, TriggerManual)
}

func (s *service) refill(ctx context.Context, userID, trigger string) (*RefillResult, error) {
	now := s.clock()
	var result *RefillResult

	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}

		balance := user.WalletBalance
		if trigger == TriggerAuto && !balance.LessThan(s.limits.RefillThreshold) {
			result = noRefill(balance, ReasonAboveThreshold)
			return nil
		}
		if !balance.LessThan(s.limits.RefillTarget) {
			result = noRefill(balance, ReasonAtTarget)
			return nil
		}

		used, err := tx.Ledger().CountCreditTransactions(ctx, repositories.CreditFilter{
			UserID: userID,
			Type:   models.CreditAutoRefill,
			Since:  timeutil.StartOfDay(now),
		})
		if err != nil {
			return fmt.Errorf("failed to count refills: %w", err)
		}
		if used >= int64(s.limits.MaxRefillsPerDay) {
			if trigger == TriggerManual {
				return apperrors.Newf(apperrors.KindRefillLimitExceeded,
					"maximum of %d refills per day reached", s.limits.MaxRefillsPerDay)
			}
			result = noRefill(balance, ReasonLimitReached)
			return nil
		}

		amount := s.limits.RefillTarget.Sub(balance)
		ct, err := applyCredit(ctx, tx, user, CreditInput{
			UserID:       userID,
			Amount:       amount,
			Type:         models.CreditAutoRefill,
			Note:         fmt.Sprintf("%s refill to %s", trigger, s.limits.RefillTarget.StringFixed(2)),
			IsAutoRefill: trigger == TriggerAuto,
		}, now)
		if err != nil {
			return err
		}

		result = &RefillResult{
			Refilled:        true,
			Amount:          amount,
			PreviousBalance: ct.PreviousBalance,
			NewBalance:      ct.NewBalance,
			Reason:          ReasonRefilled,
			Transaction:     ct,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Refilled {
		return result, nil
	}

	s.InvalidateBalances(ctx, userID)
	s.metrics.RecordRefill(trigger, result.Amount)
	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"trigger": trigger,
		"amount":  result.Amount.StringFixed(2),
	}).Info("wallet refilled")

	events.PublishAfterCommit(ctx, s.publisher, events.AutoRefillApplied{
		Recipient:       userID,
		TransactionID:   result.Transaction.ID,
		Amount:          result.Amount,
		PreviousBalance: result.PreviousBalance,
		NewBalance:      result.NewBalance,
		At:              now,
	})
	return result, nil
}

// SweepAutoRefill runs CheckAndAutoRefill for users below the threshold.
// One user's failure does not stop the sweep.
func (s *service) SweepAutoRefill(ctx context.Context) (*SweepResult, error) {
	users, err := s.store.Users().ListBelowBalance(ctx, s.limits.RefillThreshold, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for refill: %w", err)
	}

	result := &SweepResult{Credited: decimal.Zero}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		r, err := s.CheckAndAutoRefill(ctx, u.ID)
		if err != nil {
			result.Failed++
			logger.WithField("user_id", u.ID).Errorf("auto-refill failed: %v", err)
			continue
		}
		if r.Refilled {
			result.Refilled++
			result.Credited = result.Credited.Add(r.Amount)
		}
	}
	return result, nil
}

func noRefill(balance decimal.Decimal, reason string) *RefillResult {
	return &RefillResult{
		Refilled:        false,
		Amount:          decimal.Zero,
		PreviousBalance: balance,
		NewBalance:      balance,
		Reason:          reason,
	}
}
