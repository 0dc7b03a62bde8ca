// Package marketplace holds the listing and messaging operations that sit
// in front of the exchange core and are throttled by the rate limiter.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/ratelimit"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CreateListingInput struct {
	SellerID string
	Title    string
	Price    decimal.Decimal
}

type SendMessageInput struct {
	SenderID   string
	ReceiverID string
	ListingID  string
	Body       string
}

type Service interface {
	CreateListing(ctx context.Context, in CreateListingInput) (*models.Listing, error)
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error)
}

// Limiter is the part of the rate limiter used here.
type Limiter interface {
	CanSendMessage(ctx context.Context, senderID string) (ratelimit.Decision, error)
	CanCreateListing(ctx context.Context, sellerID string) (ratelimit.Decision, error)
}

type service struct {
	store   repositories.Store
	limiter Limiter
	now     func() time.Time
}

func NewService(store repositories.Store, limiter Limiter, now func() time.Time) Service {
	if store == nil {
		panic("store is required")
	}
	if limiter == nil {
		panic("limiter is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{store: store, limiter: limiter, now: now}
}

func (s *service) CreateListing(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	if !in.Price.IsPositive() {
		return nil, apperrors.New(apperrors.KindInvalidAmount, "price must be positive")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.New(apperrors.KindValidation, "title is required")
	}
	if err := s.requireUser(ctx, in.SellerID); err != nil {
		return nil, err
	}

	decision, err := s.limiter.CanCreateListing(ctx, in.SellerID)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Title:     title,
		SellerID:  in.SellerID,
		Price:     in.Price.Round(2),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Listings().Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"seller_id":  in.SellerID,
		"price":      listing.Price.StringFixed(2),
	}).Info("listing created")
	return listing, nil
}

func (s *service) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := s.store.Listings().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	return listing, nil
}

func (s *service) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.SenderID == in.ReceiverID {
		return nil, apperrors.New(apperrors.KindValidation, "cannot message yourself")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperrors.New(apperrors.KindValidation, "message body is required")
	}
	if _, err := s.GetListing(ctx, in.ListingID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, in.ReceiverID); err != nil {
		return nil, err
	}

	decision, err := s.limiter.CanSendMessage(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		ListingID:  in.ListingID,
		Body:       body,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, nil
}

func (s *service) requireUser(ctx context.Context, id string) error {
	if _, err := s.store.Users().GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return nil
}
