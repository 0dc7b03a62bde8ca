package repositories

import (
	"context"
	"time"

	"brokebuy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseRequestRepository struct {
	db *gorm.DB
}

func (r *purchaseRequestRepository) Create(ctx context.Context, req *models.PurchaseRequest) error {
	return wrapErr("create purchase request", r.db.WithContext(ctx).Create(req).Error)
}

func (r *purchaseRequestRepository) GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, wrapErr("get purchase request", err)
	}
	return &req, nil
}

func (r *purchaseRequestRepository) FindOpen(ctx context.Context, listingID, buyerID string) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND status IN ?", listingID, buyerID,
			[]models.RequestStatus{models.RequestPending, models.RequestAccepted}).
		First(&req).Error
	if err != nil {
		return nil, wrapErr("find open purchase request", err)
	}
	return &req, nil
}

func (r *purchaseRequestRepository) ListByListing(ctx context.Context, listingID string) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, wrapErr("list purchase requests", err)
	}
	return reqs, nil
}

func (r *purchaseRequestRepository) ListByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, wrapErr("list purchase requests", err)
	}
	return reqs, nil
}

func (r *purchaseRequestRepository) Transition(ctx context.Context, id string, to models.RequestStatus, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]interface{}{
			"status":         to,
			"decline_reason": reason,
			"updated_at":     at,
		})
	if result.Error != nil {
		return wrapErr("transition purchase request", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *purchaseRequestRepository) DeclinePending(ctx context.Context, listingID, exceptID, reason string, at time.Time) ([]models.PurchaseRequest, error) {
	var declined []models.PurchaseRequest
	result := r.db.WithContext(ctx).
		Model(&declined).
		Clauses(clause.Returning{}).
		Where("listing_id = ? AND id <> ? AND status = ?", listingID, exceptID, models.RequestPending).
		Updates(map[string]interface{}{
			"status":         models.RequestDeclined,
			"decline_reason": reason,
			"updated_at":     at,
		})
	if result.Error != nil {
		return nil, wrapErr("decline pending requests", result.Error)
	}
	return declined, nil
}
