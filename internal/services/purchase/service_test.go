package purchase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"brokebuy/internal/config"
	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/repositories/memory"
	"brokebuy/internal/services/abuse"
	"brokebuy/internal/services/events"
	"brokebuy/internal/services/ratelimit"
	"brokebuy/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 9, 3, 14, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      Service
	store    *memory.Store
	recorder *events.Recorder
}

func newTestEnv(t *testing.T, opts ...func(*config.Limits)) *testEnv {
	t.Helper()
	limits := config.DefaultLimits()
	for _, opt := range opts {
		opt(&limits)
	}
	now := func() time.Time { return testNow }

	store := memory.New()
	rec := &events.Recorder{}
	limiter := ratelimit.NewService(store, nil, ratelimit.Config{Limits: limits, Now: now})
	walletSvc := wallet.NewService(store, limiter, nil, rec, nil, wallet.Config{Limits: limits, Now: now})
	detector := abuse.NewService(store, nil, abuse.Config{Limits: limits, Now: now})
	svc := NewService(store, walletSvc, detector, repositories.NewLocalLocker(), rec, nil, Config{Limits: limits, Now: now})
	return &testEnv{svc: svc, store: store, recorder: rec}
}

func (e *testEnv) seedUser(t *testing.T, balance int64) string {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Name: "student", WalletBalance: decimal.NewFromInt(balance)}
	require.NoError(t, e.store.Users().Create(ctx, user))
	if balance > 0 {
		require.NoError(t, e.store.Ledger().Append(ctx, &models.WalletLedgerEntry{
			UserID:    user.ID,
			Direction: models.DirectionCredit,
			Amount:    decimal.NewFromInt(balance),
			Source:    string(models.CreditAdmin),
			Timestamp: testNow.Add(-48 * time.Hour),
		}))
	}
	return user.ID
}

func (e *testEnv) seedListing(t *testing.T, sellerID string, price int64) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		Title:     "calculus textbook",
		SellerID:  sellerID,
		Price:     decimal.NewFromInt(price),
		CreatedAt: testNow.Add(-time.Hour),
	}
	require.NoError(t, e.store.Listings().Create(context.Background(), listing))
	return listing
}

func (e *testEnv) request(t *testing.T, listingID, buyerID string) *models.PurchaseRequest {
	t.Helper()
	req, err := e.svc.CreateRequest(context.Background(), CreateRequestInput{ListingID: listingID, BuyerID: buyerID})
	require.NoError(t, err)
	return req
}

func (e *testEnv) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	u, err := e.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.WalletBalance
}

func (e *testEnv) status(t *testing.T, requestID string) *models.PurchaseRequest {
	t.Helper()
	r, err := e.store.PurchaseRequests().GetByID(context.Background(), requestID)
	require.NoError(t, err)
	return r
}

func (e *testEnv) ledgerTotal(t *testing.T, userID string) int64 {
	t.Helper()
	_, total, err := e.store.Ledger().ListEntries(context.Background(), userID, 1, 0)
	require.NoError(t, err)
	return total
}

func (e *testEnv) assertLedgerMatches(t *testing.T, userID string) {
	t.Helper()
	sum, err := e.store.Ledger().SignedSum(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(e.balance(t, userID)))
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 300)

	req := env.request(t, listing.ID, buyer)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, seller, req.SellerID)

	created := env.recorder.OfKind(events.KindRequestCreated)
	require.Len(t, created, 2)
	recipients := []string{created[0].RecipientID(), created[1].RecipientID()}
	assert.ElementsMatch(t, []string{buyer, seller}, recipients)

	tests := []struct {
		name    string
		listing string
		buyer   string
		want    apperrors.Kind
	}{
		{"unknown listing", "missing", buyer, apperrors.KindNotFound},
		{"own listing", listing.ID, seller, apperrors.KindSelfPurchase},
		{"open request exists", listing.ID, buyer, apperrors.KindDuplicateRequest},
		{"unknown buyer", listing.ID, "ghost", apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateRequest(ctx, CreateRequestInput{ListingID: tt.listing, BuyerID: tt.buyer})
			assert.Equal(t, tt.want, apperrors.KindOf(err))
		})
	}
}

func TestCreateRequest_AlreadySold(t *testing.T) {
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	other := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 300)

	req := env.request(t, listing.ID, buyer)
	_, err := env.svc.AcceptRequest(context.Background(), listing.ID, req.ID, seller)
	require.NoError(t, err)

	_, err = env.svc.CreateRequest(context.Background(), CreateRequestInput{ListingID: listing.ID, BuyerID: other})
	assert.ErrorIs(t, err, apperrors.ErrAlreadySold)
}

func TestAcceptRequest_TransfersAndCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 49800)
	buyer := env.seedUser(t, 1000)
	rival1 := env.seedUser(t, 1000)
	rival2 := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 400)

	req := env.request(t, listing.ID, buyer)
	r1 := env.request(t, listing.ID, rival1)
	r2 := env.request(t, listing.ID, rival2)
	env.recorder.Reset()

	result, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.RequestAccepted, result.Request.Status)
	assert.True(t, result.BuyerBalance.Equal(decimal.NewFromInt(600)))
	// sale proceeds ignore the balance cap
	assert.True(t, result.SellerBalance.Equal(decimal.NewFromInt(50200)))
	assert.Len(t, result.Declined, 2)

	stored, err := env.store.Listings().GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSold)
	require.NotNil(t, stored.BuyerID)
	assert.Equal(t, buyer, *stored.BuyerID)
	require.NotNil(t, stored.SoldAt)

	assert.Equal(t, models.RequestAccepted, env.status(t, req.ID).Status)
	for _, id := range []string{r1.ID, r2.ID} {
		r := env.status(t, id)
		assert.Equal(t, models.RequestDeclined, r.Status)
		assert.Equal(t, models.DeclineReasonListingSold, r.DeclineReason)
	}

	declined := env.recorder.OfKind(events.KindRequestDeclined)
	require.Len(t, declined, 2)
	assert.ElementsMatch(t, []string{rival1, rival2},
		[]string{declined[0].RecipientID(), declined[1].RecipientID()})
	accepted := env.recorder.OfKind(events.KindRequestAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, buyer, accepted[0].RecipientID())

	for _, u := range []string{seller, buyer, rival1, rival2} {
		env.assertLedgerMatches(t, u)
	}

	// a second accept on the same listing is rejected
	_, err = env.svc.AcceptRequest(ctx, listing.ID, r1.ID, seller)
	assert.ErrorIs(t, err, apperrors.ErrAlreadySold)
}

func TestAcceptRequest_InsufficientFundsDeclines(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 100)
	listing := env.seedListing(t, seller, 500)
	req := env.request(t, listing.ID, buyer)
	env.recorder.Reset()

	_, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	r := env.status(t, req.ID)
	assert.Equal(t, models.RequestDeclined, r.Status)
	assert.Equal(t, models.DeclineReasonInsufficientFunds, r.DeclineReason)

	stored, err := env.store.Listings().GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSold)
	assert.Nil(t, stored.BuyerID)

	assert.EqualValues(t, 1, env.ledgerTotal(t, buyer))
	assert.EqualValues(t, 0, env.ledgerTotal(t, seller))
	assert.True(t, env.balance(t, buyer).Equal(decimal.NewFromInt(100)))

	declined := env.recorder.OfKind(events.KindRequestDeclined)
	require.Len(t, declined, 1)
	assert.Equal(t, buyer, declined[0].RecipientID())
}

func TestDeclineRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 500)
	req := env.request(t, listing.ID, buyer)
	env.recorder.Reset()

	declined, err := env.svc.DeclineRequest(ctx, listing.ID, req.ID, seller, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, declined.Status)
	assert.Equal(t, models.DeclineReasonDefault, declined.DeclineReason)
	require.Len(t, env.recorder.Events(), 1)

	// terminal states reject further transitions without side effects
	_, err = env.svc.DeclineRequest(ctx, listing.ID, req.ID, seller, "changed my mind")
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	_, err = env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	assert.Len(t, env.recorder.Events(), 1)
	assert.Equal(t, models.DeclineReasonDefault, env.status(t, req.ID).DeclineReason)

	// the buyer may ask again once the old request is closed
	again := env.request(t, listing.ID, buyer)
	result, err := env.svc.AcceptRequest(ctx, listing.ID, again.ID, seller)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = env.svc.DeclineRequest(ctx, listing.ID, again.ID, seller, "")
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	assert.Equal(t, models.RequestAccepted, env.status(t, again.ID).Status)
}

func TestAcceptAndDecline_Authorization(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	stranger := env.seedUser(t, 0)
	listing := env.seedListing(t, seller, 500)
	other := env.seedListing(t, seller, 100)
	req := env.request(t, listing.ID, buyer)

	_, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, buyer)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = env.svc.DeclineRequest(ctx, listing.ID, req.ID, stranger, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// request must belong to the listing in the path
	_, err = env.svc.AcceptRequest(ctx, other.ID, req.ID, seller)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = env.svc.AcceptRequest(ctx, listing.ID, "missing", seller)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	assert.Equal(t, models.RequestPending, env.status(t, req.ID).Status)
}

func TestAcceptRequest_ConcurrentExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	listing := env.seedListing(t, seller, 250)

	const buyers = 8
	requests := make([]*models.PurchaseRequest, buyers)
	for i := range requests {
		requests[i] = env.request(t, listing.ID, env.seedUser(t, 1000))
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.AcceptRequest(ctx, listing.ID, requests[i].ID, seller)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadySold)
	}
	assert.Equal(t, 1, wins)

	credited, err := env.store.Ledger().SumCredits(ctx, seller,
		[]string{string(models.CreditSaleProceeds)}, time.Time{})
	require.NoError(t, err)
	assert.True(t, credited.Equal(decimal.NewFromInt(250)))
	assert.True(t, env.balance(t, seller).Equal(decimal.NewFromInt(250)))

	accepted := 0
	reqs, err := env.store.PurchaseRequests().ListByListing(ctx, listing.ID)
	require.NoError(t, err)
	for _, r := range reqs {
		if r.Status == models.RequestAccepted {
			accepted++
		} else {
			assert.Equal(t, models.DeclineReasonListingSold, r.DeclineReason)
		}
	}
	assert.Equal(t, 1, accepted)
}

func seedSale(t *testing.T, store *memory.Store, seller, buyer string, ago time.Duration) {
	t.Helper()
	soldAt := testNow.Add(-ago)
	b := buyer
	require.NoError(t, store.Listings().Create(context.Background(), &models.Listing{
		SellerID: seller, BuyerID: &b, IsSold: true, SoldAt: &soldAt,
		Price: decimal.NewFromInt(10), CreatedAt: soldAt.Add(-time.Hour),
	}))
}

func TestAcceptRequest_AbuseSuspected(t *testing.T) {
	ctx := context.Background()

	t.Run("enforced", func(t *testing.T) {
		env := newTestEnv(t)
		seller := env.seedUser(t, 0)
		buyer := env.seedUser(t, 1000)
		seedSale(t, env.store, seller, buyer, 48*time.Hour)
		seedSale(t, env.store, buyer, seller, 24*time.Hour)
		listing := env.seedListing(t, seller, 100)
		req := env.request(t, listing.ID, buyer)

		_, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
		assert.Equal(t, apperrors.KindAbuseSuspected, apperrors.KindOf(err))
		assert.Equal(t, models.RequestPending, env.status(t, req.ID).Status)
		assert.True(t, env.balance(t, buyer).Equal(decimal.NewFromInt(1000)))

		flagged := env.recorder.OfKind(events.KindTradeFlagged)
		require.Len(t, flagged, 1)
		assert.Equal(t, abuse.CheckDirect, flagged[0].(events.TradeFlagged).Check)
	})

	t.Run("advisory", func(t *testing.T) {
		env := newTestEnv(t, func(l *config.Limits) { l.EnforceAbuseCheck = false })
		seller := env.seedUser(t, 0)
		buyer := env.seedUser(t, 1000)
		seedSale(t, env.store, seller, buyer, 48*time.Hour)
		seedSale(t, env.store, buyer, seller, 24*time.Hour)
		listing := env.seedListing(t, seller, 100)
		req := env.request(t, listing.ID, buyer)

		result, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Len(t, env.recorder.OfKind(events.KindTradeFlagged), 1)
	})
}

// The losing accept reads the listing as unsold, then stalls before reading
// its own request while the winner commits and declines it.
func TestAcceptRequest_LoserDeclinedBetweenReads(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	listing := env.seedListing(t, seller, 300)
	winner := env.request(t, listing.ID, env.seedUser(t, 1000))
	loser := env.request(t, listing.ID, env.seedUser(t, 1000))

	stalled := make(chan struct{})
	resume := make(chan struct{})
	var first atomic.Bool
	env.store.SetFaultHook(func(op string) error {
		if op == "requests.get" && first.CompareAndSwap(false, true) {
			close(stalled)
			<-resume
		}
		return nil
	})
	defer env.store.SetFaultHook(nil)

	loserErr := make(chan error, 1)
	go func() {
		_, err := env.svc.AcceptRequest(ctx, listing.ID, loser.ID, seller)
		loserErr <- err
	}()

	<-stalled
	result, err := env.svc.AcceptRequest(ctx, listing.ID, winner.ID, seller)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.RequestDeclined, env.status(t, loser.ID).Status)
	close(resume)

	err = <-loserErr
	require.ErrorIs(t, err, apperrors.ErrAlreadySold)
	assert.True(t, env.balance(t, seller).Equal(decimal.NewFromInt(300)))
}

func TestAcceptRequest_StorageFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()

	for _, op := range []string{"ledger.append", "listings.mark_sold", "requests.transition", "requests.decline_pending"} {
		t.Run(op, func(t *testing.T) {
			env := newTestEnv(t)
			seller := env.seedUser(t, 0)
			buyer := env.seedUser(t, 1000)
			rival := env.seedUser(t, 1000)
			listing := env.seedListing(t, seller, 400)
			req := env.request(t, listing.ID, buyer)
			rivalReq := env.request(t, listing.ID, rival)

			failing := op
			env.store.SetFaultHook(func(name string) error {
				if name == failing {
					return fmt.Errorf("%s: connection reset", name)
				}
				return nil
			})
			_, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
			env.store.SetFaultHook(nil)

			assert.ErrorIs(t, err, apperrors.ErrTransferFailed)
			assert.True(t, env.balance(t, buyer).Equal(decimal.NewFromInt(1000)))
			assert.True(t, env.balance(t, seller).IsZero())
			assert.EqualValues(t, 1, env.ledgerTotal(t, buyer))
			assert.EqualValues(t, 0, env.ledgerTotal(t, seller))
			assert.Equal(t, models.RequestPending, env.status(t, req.ID).Status)
			assert.Equal(t, models.RequestPending, env.status(t, rivalReq.ID).Status)

			stored, err := env.store.Listings().GetByID(ctx, listing.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsSold)

			// an explicit retry succeeds once storage recovers
			result, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
			require.NoError(t, err)
			assert.True(t, result.Success)
		})
	}
}

func TestAcceptRequest_CancelledBeforeTransfer(t *testing.T) {
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 400)
	req := env.request(t, listing.ID, buyer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.svc.AcceptRequest(ctx, listing.ID, req.ID, seller)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, apperrors.KindCanceled, apperrors.KindOf(err))
	assert.Equal(t, models.RequestPending, env.status(t, req.ID).Status)
	assert.True(t, env.balance(t, buyer).Equal(decimal.NewFromInt(1000)))
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("lock held elsewhere")
}

func TestAcceptRequest_ListingBusy(t *testing.T) {
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	buyer := env.seedUser(t, 1000)
	listing := env.seedListing(t, seller, 400)
	req := env.request(t, listing.ID, buyer)

	limits := config.DefaultLimits()
	now := func() time.Time { return testNow }
	limiter := ratelimit.NewService(env.store, nil, ratelimit.Config{Limits: limits, Now: now})
	walletSvc := wallet.NewService(env.store, limiter, nil, nil, nil, wallet.Config{Limits: limits, Now: now})
	detector := abuse.NewService(env.store, nil, abuse.Config{Limits: limits, Now: now})
	svc := NewService(env.store, walletSvc, detector, busyLocker{}, nil, nil, Config{Limits: limits, Now: now})

	_, err := svc.AcceptRequest(context.Background(), listing.ID, req.ID, seller)
	assert.ErrorIs(t, err, apperrors.ErrTransferFailed)
	assert.Equal(t, models.RequestPending, env.status(t, req.ID).Status)
}

func TestRequestQueries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.seedUser(t, 0)
	alice := env.seedUser(t, 1000)
	bob := env.seedUser(t, 1000)
	stranger := env.seedUser(t, 0)
	listing := env.seedListing(t, seller, 100)
	ra := env.request(t, listing.ID, alice)
	env.request(t, listing.ID, bob)

	all, err := env.svc.ListRequestsForListing(ctx, listing.ID, seller)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := env.svc.ListRequestsForListing(ctx, listing.ID, alice)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, ra.ID, own[0].ID)

	none, err := env.svc.ListRequestsForListing(ctx, listing.ID, stranger)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.svc.ListRequestsForListing(ctx, "missing", seller)
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)

	got, err := env.svc.GetRequest(ctx, ra.ID, seller)
	require.NoError(t, err)
	assert.Equal(t, alice, got.BuyerID)
	_, err = env.svc.GetRequest(ctx, ra.ID, stranger)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	mine, err := env.svc.ListRequestsForBuyer(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
