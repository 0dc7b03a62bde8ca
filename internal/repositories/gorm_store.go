package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by PostgreSQL through gorm.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository       { return &userRepository{db: s.db} }
func (s *gormStore) Listings() ListingRepository { return &listingRepository{db: s.db} }
func (s *gormStore) Ledger() LedgerRepository    { return &ledgerRepository{db: s.db} }
func (s *gormStore) Messages() MessageRepository { return &messageRepository{db: s.db} }

func (s *gormStore) PurchaseRequests() PurchaseRequestRepository {
	return &purchaseRequestRepository{db: s.db}
}

// WithinTransaction runs fn inside a database transaction. Calls made on an
// already transactional store reuse the open transaction.
func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// wrapErr translates gorm errors to the repository sentinels.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
