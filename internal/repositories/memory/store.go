// Package memory is an in-process implementation of repositories.Store.
// Transactions are serialisable: one transaction runs at a time against a
// private copy of the data, which replaces the shared state on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"

	"github.com/google/uuid"
)

type state struct {
	users    map[string]models.User
	listings map[string]models.Listing
	requests map[string]models.PurchaseRequest
	ledger   []models.WalletLedgerEntry
	credits  []models.CreditTransaction
	messages []models.Message
}

func newState() *state {
	return &state{
		users:    make(map[string]models.User),
		listings: make(map[string]models.Listing),
		requests: make(map[string]models.PurchaseRequest),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[string]models.User, len(s.users)),
		listings: make(map[string]models.Listing, len(s.listings)),
		requests: make(map[string]models.PurchaseRequest, len(s.requests)),
		ledger:   append([]models.WalletLedgerEntry(nil), s.ledger...),
		credits:  append([]models.CreditTransaction(nil), s.credits...),
		messages: append([]models.Message(nil), s.messages...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	return c
}

type core struct {
	mu    sync.Mutex
	state *state

	hookMu sync.RWMutex
	fault  func(op string) error
}

// Store is the in-memory Store. The zero value is not usable, call New.
type Store struct {
	core *core
	tx   *state
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{core: &core{state: newState()}}
}

// SetFaultHook installs fn to be called before every repository operation
// with the operation name. A non-nil return fails that operation.
func (s *Store) SetFaultHook(fn func(op string) error) {
	s.core.hookMu.Lock()
	s.core.fault = fn
	s.core.hookMu.Unlock()
}

func (s *Store) Users() repositories.UserRepository       { return userRepo{s} }
func (s *Store) Listings() repositories.ListingRepository { return listingRepo{s} }
func (s *Store) Ledger() repositories.LedgerRepository    { return ledgerRepo{s} }
func (s *Store) Messages() repositories.MessageRepository { return messageRepo{s} }

func (s *Store) PurchaseRequests() repositories.PurchaseRequestRepository {
	return requestRepo{s}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	tx := &Store{core: s.core, tx: s.core.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.core.state = tx.tx
	return nil
}

// do runs fn against the transaction's copy, or under the store lock when
// called outside a transaction.
func (s *Store) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.core.hookMu.RLock()
	fault := s.core.fault
	s.core.hookMu.RUnlock()
	if fault != nil {
		if err := fault(op); err != nil {
			return err
		}
	}

	if s.tx != nil {
		return fn(s.tx)
	}
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return fn(s.core.state)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func inWindow(t *time.Time, since time.Time, count *repositories.WindowCount) {
	if t == nil || t.Before(since) {
		return
	}
	count.Count++
	if count.Oldest == nil || t.Before(*count.Oldest) {
		oldest := *t
		count.Oldest = &oldest
	}
}
