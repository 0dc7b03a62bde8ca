package wallet

import (
	"context"
	"fmt"
	"time"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/utils/timeutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TopUp credits a manual top-up after the daily volume, balance cap and
// daily count checks, in that order.
func (s *service) TopUp(ctx context.Context, userID string, amount decimal.Decimal, note string) (ct *models.CreditTransaction, err error) {
	defer s.observe(opTopUp, time.Now(), &err)

	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	decision, err := s.limiter.CanCredit(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to check daily credit volume: %w", err)
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	now := s.clock()
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}

		if user.WalletBalance.Add(amount).GreaterThan(s.limits.BalanceCap) {
			return apperrors.Newf(apperrors.KindBalanceCapExceeded,
				"top-up would bring the balance to %s, above the cap of %s",
				user.WalletBalance.Add(amount).StringFixed(2), s.limits.BalanceCap.StringFixed(2))
		}

		count, err := tx.Ledger().CountCreditTransactions(ctx, repositories.CreditFilter{
			UserID: userID,
			Type:   models.CreditManualTopup,
			Since:  timeutil.StartOfDay(now),
		})
		if err != nil {
			return fmt.Errorf("failed to count top-ups: %w", err)
		}
		if count >= int64(s.limits.MaxTopUpsPerDay) {
			return apperrors.Newf(apperrors.KindTopUpCountExceeded,
				"maximum of %d top-ups per day reached", s.limits.MaxTopUpsPerDay)
		}

		if note == "" {
			note = "manual top-up"
		}
		ct, err = applyCredit(ctx, tx, user, CreditInput{
			UserID: userID,
			Amount: amount,
			Type:   models.CreditManualTopup,
			Note:   note,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateBalances(ctx, userID)
	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.StringFixed(2),
	}).Info("wallet topped up")
	return ct, nil
}
