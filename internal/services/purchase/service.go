package purchase

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

	"github.com/sirupsen/logrus"
)

type service struct {
	store     repositories.Store
	wallet    WalletService
	detector  AbuseDetector
	locker    Locker
	publisher events.Publisher
	metrics   metrics.Collector
	limits    config.Limits
	now       func() time.Time
}

// NewService creates the purchase request engine
func NewService(
	store repositories.Store,
	walletSvc WalletService,
	detector AbuseDetector,
	locker Locker,
	publisher events.Publisher,
	collector metrics.Collector,
	cfg Config,
) Service {
	if store == nil {
		panic("store is required")
	}
	if walletSvc == nil {
		panic("wallet service is required")
	}
	if detector == nil {
		panic("abuse detector is required")
	}
	if locker == nil {
		panic("locker is required")
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
		wallet:    walletSvc,
		detector:  detector,
		locker:    locker,
		publisher: publisher,
		metrics:   collector,
		limits:    cfg.Limits,
		now:       cfg.Now,
	}
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

func (s *service) observe(op string, start time.Time, errp *error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if *errp != nil {
		s.metrics.RecordOperationResult(op, "failure")
		s.metrics.RecordError(op, string(apperrors.KindOf(*errp)))
		return
	}
	s.metrics.RecordOperationResult(op, "success")
}

func (s *service) CreateRequest(ctx context.Context, in CreateRequestInput) (req *models.PurchaseRequest, err error) {
	defer s.observe(opCreate, time.Now(), &err)

	listing, err := s.getListing(ctx, s.store, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == in.BuyerID {
		return nil, apperrors.ErrSelfPurchase
	}
	if listing.IsSold {
		return nil, apperrors.ErrAlreadySold
	}
	if _, err := s.store.Users().GetByID(ctx, in.BuyerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	_, err = s.store.PurchaseRequests().FindOpen(ctx, in.ListingID, in.BuyerID)
	switch {
	case err == nil:
		return nil, apperrors.ErrDuplicateRequest
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to check open requests: %w", err)
	}

	now := s.clock()
	req = &models.PurchaseRequest{
		ListingID: listing.ID,
		BuyerID:   in.BuyerID,
		SellerID:  listing.SellerID,
		Status:    models.RequestPending,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PurchaseRequests().Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to create purchase request: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"listing_id": listing.ID,
		"buyer_id":   in.BuyerID,
	}).Info("purchase request created")

	created := events.RequestCreated{
		RequestID: req.ID,
		ListingID: listing.ID,
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
		Price:     listing.Price,
		At:        now,
	}
	toBuyer, toSeller := created, created
	toBuyer.Recipient, toBuyer.Role = req.BuyerID, events.RoleBuyer
	toSeller.Recipient, toSeller.Role = req.SellerID, events.RoleSeller
	events.PublishAfterCommit(ctx, s.publisher, toBuyer, toSeller)

	return req, nil
}

func (s *service) DeclineRequest(ctx context.Context, listingID, requestID, actingUserID, reason string) (req *models.PurchaseRequest, err error) {
	defer s.observe(opDecline, time.Now(), &err)

	listing, err := s.getListing(ctx, s.store, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != actingUserID {
		return nil, apperrors.ErrForbidden
	}
	req, err = s.getRequest(ctx, s.store, listingID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "request is already %s", req.Status)
	}

	if reason == "" {
		reason = models.DeclineReasonDefault
	}
	now := s.clock()
	if err := s.store.PurchaseRequests().Transition(ctx, req.ID, models.RequestDeclined, reason, now); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, apperrors.ErrInvalidState
		}
		return nil, fmt.Errorf("failed to decline request: %w", err)
	}
	req.Status = models.RequestDeclined
	req.DeclineReason = reason
	req.UpdatedAt = now

	events.PublishAfterCommit(ctx, s.publisher, events.RequestDeclined{
		Recipient: req.BuyerID,
		RequestID: req.ID,
		ListingID: listingID,
		Reason:    reason,
		At:        now,
	})
	return req, nil
}

func (s *service) GetRequest(ctx context.Context, requestID, actingUserID string) (*models.PurchaseRequest, error) {
	req, err := s.store.PurchaseRequests().GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req.BuyerID != actingUserID && req.SellerID != actingUserID {
		return nil, apperrors.ErrForbidden
	}
	return req, nil
}

// ListRequestsForListing returns every request on the listing to its
// seller, and only their own requests to anyone else.
func (s *service) ListRequestsForListing(ctx context.Context, listingID, actingUserID string) ([]models.PurchaseRequest, error) {
	listing, err := s.getListing(ctx, s.store, listingID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.store.PurchaseRequests().ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	if listing.SellerID == actingUserID {
		return reqs, nil
	}

	own := make([]models.PurchaseRequest, 0, 1)
	for _, r := range reqs {
		if r.BuyerID == actingUserID {
			own = append(own, r)
		}
	}
	return own, nil
}

func (s *service) ListRequestsForBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error) {
	reqs, err := s.store.PurchaseRequests().ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}

func (s *service) getListing(ctx context.Context, store repositories.Store, id string) (*models.Listing, error) {
	listing, err := store.Listings().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	return listing, nil
}

// getRequest loads a request and checks it belongs to the listing.
func (s *service) getRequest(ctx context.Context, store repositories.Store, listingID, requestID string) (*models.PurchaseRequest, error) {
	req, err := store.PurchaseRequests().GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req.ListingID != listingID {
		return nil, apperrors.ErrRequestNotFound
	}
	return req, nil
}
