package purchase

import (
	"context"
	"errors"
	"time"

	apperrors "brokebuy/internal/errors"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
	"brokebuy/internal/services/events"
	"brokebuy/internal/services/wallet"

	"github.com/sirupsen/logrus"
)

// AcceptRequest sells the listing to the request's buyer.
//
// Checks run in order: seller authorization, listing unsold, request
// pending on this listing, abuse screening. The transfer then runs under
// the listing lock in one store transaction that re-reads listing and
// request, settles the funds, marks the listing sold and the request
// accepted (both as conditional updates), and declines every other pending
// request. A buyer without enough funds gets the request declined instead.
//
// Client cancellation is honoured until the transaction starts; from then
// on it runs to completion bounded only by TransferTimeout.
func (s *service) AcceptRequest(ctx context.Context, listingID, requestID, actingUserID string) (result *AcceptResult, err error) {
	defer s.observe(opAccept, time.Now(), &err)

	listing, err := s.getListing(ctx, s.store, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != actingUserID {
		return nil, apperrors.ErrForbidden
	}
	if listing.IsSold {
		return nil, apperrors.ErrAlreadySold
	}
	req, err := s.getRequest(ctx, s.store, listingID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		// A concurrent accept may have sold the listing since it was read.
		if current, err := s.getListing(ctx, s.store, listingID); err == nil && current.IsSold {
			return nil, apperrors.ErrAlreadySold
		}
		return nil, apperrors.Newf(apperrors.KindInvalidState, "request is already %s", req.Status)
	}

	if err := s.screen(ctx, listing, req); err != nil {
		return nil, err
	}

	lockCtx, cancelLock := context.WithTimeout(ctx, s.limits.TransferTimeout)
	defer cancelLock()
	release, err := s.locker.Acquire(lockCtx, listingLockKey(listingID))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WithField("listing_id", listingID).Warnf("listing lock not acquired: %v", err)
		return nil, apperrors.New(apperrors.KindTransferFailed, "listing is busy, try again")
	}
	defer release()

	// Last point where the caller can still walk away.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.limits.TransferTimeout)
	defer cancel()

	now := s.clock()
	var (
		settlement  *wallet.Settlement
		declined    []models.PurchaseRequest
		noFunds     bool
		soldListing models.Listing
		acceptedReq models.PurchaseRequest
	)
	err = s.store.WithinTransaction(txCtx, func(tx repositories.Store) error {
		l, err := s.getListing(txCtx, tx, listingID)
		if err != nil {
			return err
		}
		if l.IsSold {
			return apperrors.ErrAlreadySold
		}
		r, err := s.getRequest(txCtx, tx, listingID, requestID)
		if err != nil {
			return err
		}
		if r.Status != models.RequestPending {
			return apperrors.Newf(apperrors.KindInvalidState, "request is already %s", r.Status)
		}

		settlement, err = s.wallet.SettleSale(txCtx, tx, wallet.SaleSettlement{
			BuyerID:   r.BuyerID,
			SellerID:  l.SellerID,
			Amount:    l.Price,
			ListingID: l.ID,
			RequestID: r.ID,
		})
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			noFunds = true
			return transition(txCtx, tx, r.ID, models.RequestDeclined, models.DeclineReasonInsufficientFunds, now)
		}
		if err != nil {
			return err
		}

		if err := tx.Listings().MarkSold(txCtx, l.ID, r.BuyerID, now); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return apperrors.ErrAlreadySold
			}
			return err
		}
		if err := transition(txCtx, tx, r.ID, models.RequestAccepted, "", now); err != nil {
			return err
		}
		declined, err = tx.PurchaseRequests().DeclinePending(txCtx, l.ID, r.ID, models.DeclineReasonListingSold, now)
		if err != nil {
			return err
		}

		soldListing, acceptedReq = *l, *r
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"listing_id": listingID,
			"request_id": requestID,
		}).Errorf("purchase transfer aborted: %v", err)
		return nil, apperrors.ErrTransferFailed
	}

	if noFunds {
		events.PublishAfterCommit(ctx, s.publisher, events.RequestDeclined{
			Recipient: req.BuyerID,
			RequestID: req.ID,
			ListingID: listingID,
			Reason:    models.DeclineReasonInsufficientFunds,
			At:        now,
		})
		return nil, apperrors.ErrInsufficientFunds
	}

	s.wallet.InvalidateBalances(ctx, acceptedReq.BuyerID, soldListing.SellerID)
	s.metrics.RecordTransferVolume(soldListing.Price)

	buyerID := acceptedReq.BuyerID
	soldListing.IsSold = true
	soldListing.BuyerID = &buyerID
	soldListing.SoldAt = &now
	soldListing.UpdatedAt = now
	acceptedReq.Status = models.RequestAccepted
	acceptedReq.UpdatedAt = now

	logger.WithFields(logrus.Fields{
		"listing_id": listingID,
		"request_id": requestID,
		"buyer_id":   buyerID,
		"amount":     soldListing.Price.StringFixed(2),
		"declined":   len(declined),
	}).Info("purchase request accepted")

	notifications := make([]events.Event, 0, len(declined)+1)
	for _, d := range declined {
		notifications = append(notifications, events.RequestDeclined{
			Recipient: d.BuyerID,
			RequestID: d.ID,
			ListingID: listingID,
			Reason:    models.DeclineReasonListingSold,
			At:        now,
		})
	}
	notifications = append(notifications, events.RequestAccepted{
		Recipient: buyerID,
		RequestID: acceptedReq.ID,
		ListingID: listingID,
		SellerID:  soldListing.SellerID,
		Price:     soldListing.Price,
		At:        now,
	})
	events.PublishAfterCommit(ctx, s.publisher, notifications...)

	return &AcceptResult{
		Success:       true,
		Request:       &acceptedReq,
		Listing:       &soldListing,
		BuyerBalance:  settlement.BuyerBalance,
		SellerBalance: settlement.SellerBalance,
		Declined:      declined,
	}, nil
}

// screen runs the abuse detector between seller and buyer. Detector
// failures are logged and do not block the trade.
func (s *service) screen(ctx context.Context, listing *models.Listing, req *models.PurchaseRequest) error {
	verdict, err := s.detector.DetectCircularTrade(ctx, listing.SellerID, req.BuyerID)
	if err != nil {
		logger.WithField("request_id", req.ID).Warnf("abuse check failed: %v", err)
		return nil
	}
	if !verdict.Flagged {
		return nil
	}

	events.PublishAfterCommit(ctx, s.publisher, events.TradeFlagged{
		Recipient: events.ModerationRecipient,
		RequestID: req.ID,
		ListingID: listing.ID,
		BuyerID:   req.BuyerID,
		SellerID:  listing.SellerID,
		Check:     verdict.Check,
		Reason:    verdict.Reason,
		At:        s.clock(),
	})
	if !s.limits.EnforceAbuseCheck {
		return nil
	}
	return apperrors.Newf(apperrors.KindAbuseSuspected, "trade blocked: %s", verdict.Reason)
}

func transition(ctx context.Context, tx repositories.Store, id string, to models.RequestStatus, reason string, at time.Time) error {
	err := tx.PurchaseRequests().Transition(ctx, id, to, reason, at)
	if errors.Is(err, repositories.ErrConflict) {
		return apperrors.ErrInvalidState
	}
	return err
}
