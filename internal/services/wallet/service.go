package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brokebuy/internal/config"
	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/metrics"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/events"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type service struct {
	store     repositories.Store
	limiter   CreditLimiter
	cache     BalanceCache
	publisher events.Publisher
	metrics   metrics.Collector
	limits    config.Limits
	now       func() time.Time
}

// NewService creates a new wallet service
func NewService(
	store repositories.Store,
	limiter CreditLimiter,
	cache BalanceCache,
	publisher events.Publisher,
	collector metrics.Collector,
	cfg Config,
) Service {
	if store == nil {
		panic("store is required")
	}
	if limiter == nil {
		panic("credit limiter is required")
	}

	// Cache, publisher and metrics are optional
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &service{
		store:     store,
		limiter:   limiter,
		cache:     cache,
		publisher: publisher,
		metrics:   collector,
		limits:    cfg.Limits,
		now:       cfg.Now,
	}
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// observe records duration and outcome of an operation. Call it deferred
// with a pointer to the named error result.
func (s *service) observe(op string, start time.Time, errp *error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if *errp != nil {
		s.metrics.RecordOperationResult(op, "failure")
		s.metrics.RecordError(op, string(apperrors.KindOf(*errp)))
		return
	}
	s.metrics.RecordOperationResult(op, "success")
}

func (s *service) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if balance, found, err := s.cache.GetBalance(ctx, userID); err == nil && found {
		return balance, nil
	}

	// The version must be read before the row: a write committed in
	// between bumps it and the stale value is never stored.
	version, verr := s.cache.BalanceVersion(ctx, userID)

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, translateUserErr(err)
	}

	if verr != nil {
		logger.Warnf("failed to read balance version for %s: %v", userID, verr)
	} else if err := s.cache.SetBalance(ctx, userID, user.WalletBalance, version); err != nil {
		logger.Warnf("failed to cache balance for %s: %v", userID, err)
	}
	return user.WalletBalance, nil
}

func (s *service) Credit(ctx context.Context, in CreditInput) (ct *models.CreditTransaction, err error) {
	defer s.observe(opCredit, time.Now(), &err)

	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Type.Valid() {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown credit type %q", in.Type)
	}

	now := s.clock()
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetForUpdate(ctx, in.UserID)
		if err != nil {
			return translateUserErr(err)
		}
		ct, err = applyCredit(ctx, tx, user, in, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateBalances(ctx, in.UserID)
	return ct, nil
}

func (s *service) Debit(ctx context.Context, userID string, amount decimal.Decimal, note string) (change *BalanceChange, err error) {
	defer s.observe(opDebit, time.Now(), &err)

	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	now := s.clock()
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}
		if user.WalletBalance.LessThan(amount) {
			return apperrors.ErrInsufficientFunds
		}
		change, err = applyDebit(ctx, tx, user, amount, note, models.LedgerSourceDebit, "", now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateBalances(ctx, userID)
	return change, nil
}

// SettleSale debits the buyer and credits the seller within tx. Both user
// rows are locked in id order so two settlements between the same pair
// cannot deadlock. An insufficient balance fails before anything is written.
func (s *service) SettleSale(ctx context.Context, tx repositories.Store, sale SaleSettlement) (result *Settlement, err error) {
	defer s.observe(opSettle, time.Now(), &err)

	if !sale.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if sale.BuyerID == sale.SellerID {
		return nil, apperrors.ErrSelfPurchase
	}

	first, second := sale.BuyerID, sale.SellerID
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*models.User, 2)
	for _, id := range []string{first, second} {
		user, err := tx.Users().GetForUpdate(ctx, id)
		if err != nil {
			return nil, translateUserErr(err)
		}
		locked[id] = user
	}

	buyer, seller := locked[sale.BuyerID], locked[sale.SellerID]
	if buyer.WalletBalance.LessThan(sale.Amount) {
		return nil, apperrors.ErrInsufficientFunds
	}

	now := s.clock()
	debit, err := applyDebit(ctx, tx, buyer, sale.Amount,
		fmt.Sprintf("purchase of listing %s", sale.ListingID),
		models.LedgerSourcePurchase, sale.RequestID, now)
	if err != nil {
		return nil, err
	}
	credit, err := applyCredit(ctx, tx, seller, CreditInput{
		UserID:      sale.SellerID,
		Amount:      sale.Amount,
		Type:        models.CreditSaleProceeds,
		Note:        fmt.Sprintf("sale of listing %s", sale.ListingID),
		ReferenceID: sale.RequestID,
	}, now)
	if err != nil {
		return nil, err
	}

	return &Settlement{
		BuyerBalance:  debit.NewBalance,
		SellerBalance: credit.NewBalance,
		Debit:         debit.Entry,
		Credit:        credit,
	}, nil
}

// InvalidateBalances drops cached balances after a committed write. Cache
// failures are logged; the next read falls back to the store.
func (s *service) InvalidateBalances(ctx context.Context, userIDs ...string) {
	if err := s.cache.InvalidateBalance(context.WithoutCancel(ctx), userIDs...); err != nil {
		logger.WithField("user_ids", userIDs).Warnf("failed to invalidate balance cache: %v", err)
	}
}

// applyCredit writes the balance, ledger entry and credit transaction of
// one credit. user must be locked in tx.
func applyCredit(ctx context.Context, tx repositories.Store, user *models.User, in CreditInput, now time.Time) (*models.CreditTransaction, error) {
	previous := user.WalletBalance
	next := previous.Add(in.Amount)

	if err := tx.Users().UpdateBalance(ctx, user.ID, next, now); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	ct := &models.CreditTransaction{
		UserID:          user.ID,
		Amount:          in.Amount,
		TransactionType: in.Type,
		ReferenceID:     in.ReferenceID,
		Description:     in.Note,
		IsAutoRefill:    in.IsAutoRefill,
		PreviousBalance: previous,
		NewBalance:      next,
		CreatedAt:       now,
	}
	if err := tx.Ledger().CreateCreditTransaction(ctx, ct); err != nil {
		return nil, fmt.Errorf("failed to record credit transaction: %w", err)
	}

	ref := in.ReferenceID
	if ref == "" {
		ref = ct.ID
	}
	entry := &models.WalletLedgerEntry{
		UserID:      user.ID,
		Direction:   models.DirectionCredit,
		Amount:      in.Amount,
		Note:        in.Note,
		Source:      string(in.Type),
		ReferenceID: ref,
		Timestamp:   now,
	}
	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	user.WalletBalance = next
	logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"type":    in.Type,
		"amount":  in.Amount.StringFixed(2),
	}).Debugf("credit applied, balance %s -> %s", previous.StringFixed(2), next.StringFixed(2))
	return ct, nil
}

// applyDebit writes the balance and ledger entry of one debit. The caller
// has checked sufficiency against the locked user.
func applyDebit(ctx context.Context, tx repositories.Store, user *models.User, amount decimal.Decimal, note, source, ref string, now time.Time) (*BalanceChange, error) {
	previous := user.WalletBalance
	next := previous.Sub(amount)
	if next.IsNegative() {
		return nil, apperrors.ErrInsufficientFunds
	}

	if err := tx.Users().UpdateBalance(ctx, user.ID, next, now); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	entry := &models.WalletLedgerEntry{
		UserID:      user.ID,
		Direction:   models.DirectionDebit,
		Amount:      amount,
		Note:        note,
		Source:      source,
		ReferenceID: ref,
		Timestamp:   now,
	}
	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	user.WalletBalance = next
	return &BalanceChange{
		UserID:          user.ID,
		Amount:          amount,
		PreviousBalance: previous,
		NewBalance:      next,
		Entry:           entry,
	}, nil
}

func translateUserErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrUserNotFound
	}
	return fmt.Errorf("failed to load user: %w", err)
}
