package marketplace

import (
	"context"
	"testing"
	"time"

	"brokebuy/internal/config"
	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories/memory"
	"brokebuy/internal/services/ratelimit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (Service, *memory.Store, *fakeClock, []string) {
	t.Helper()
	store := memory.New()
	clk := &fakeClock{t: time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewService(store, nil, ratelimit.Config{Limits: config.DefaultLimits(), Now: clk.Now})

	var ids []string
	for _, name := range []string{"ana", "ben"} {
		u := &models.User{Name: name}
		require.NoError(t, store.Users().Create(context.Background(), u))
		ids = append(ids, u.ID)
	}
	return NewService(store, limiter, clk.Now), store, clk, ids
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()
	svc, _, clk, users := newTestService(t)
	seller := users[0]

	tests := []struct {
		name string
		in   CreateListingInput
		want apperrors.Kind
	}{
		{"zero price", CreateListingInput{SellerID: seller, Title: "lamp", Price: decimal.Zero}, apperrors.KindInvalidAmount},
		{"negative price", CreateListingInput{SellerID: seller, Title: "lamp", Price: decimal.NewFromInt(-5)}, apperrors.KindInvalidAmount},
		{"blank title", CreateListingInput{SellerID: seller, Title: "  ", Price: decimal.NewFromInt(5)}, apperrors.KindValidation},
		{"unknown seller", CreateListingInput{SellerID: "ghost", Title: "lamp", Price: decimal.NewFromInt(5)}, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateListing(ctx, tt.in)
			assert.Equal(t, tt.want, apperrors.KindOf(err))
		})
	}

	for i := 0; i < 3; i++ {
		listing, err := svc.CreateListing(ctx, CreateListingInput{SellerID: seller, Title: "desk", Price: decimal.NewFromFloat(12.5)})
		require.NoError(t, err)
		assert.False(t, listing.IsSold)
		assert.Equal(t, "12.50", listing.Price.StringFixed(2))
		clk.Advance(time.Hour)
	}

	_, err := svc.CreateListing(ctx, CreateListingInput{SellerID: seller, Title: "desk", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	clk.Advance(22 * time.Hour)
	_, err = svc.CreateListing(ctx, CreateListingInput{SellerID: seller, Title: "desk", Price: decimal.NewFromInt(1)})
	assert.NoError(t, err)
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	svc, store, clk, users := newTestService(t)
	ana, ben := users[0], users[1]
	listing := &models.Listing{SellerID: ben, Title: "bike", Price: decimal.NewFromInt(80)}
	require.NoError(t, store.Listings().Create(ctx, listing))

	_, err := svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ana, ListingID: listing.ID, Body: "hi"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ben, ListingID: "missing", Body: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ben, ListingID: listing.ID, Body: ""})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	for i := 0; i < 3; i++ {
		msg, err := svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ben, ListingID: listing.ID, Body: "still available?"})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		clk.Advance(time.Second)
	}

	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ben, ListingID: listing.ID, Body: "hello?"})
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	// the other user has their own window
	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: ben, ReceiverID: ana, ListingID: listing.ID, Body: "yes"})
	assert.NoError(t, err)

	clk.Advance(8 * time.Second)
	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: ana, ReceiverID: ben, ListingID: listing.ID, Body: "great"})
	assert.NoError(t, err)
}
