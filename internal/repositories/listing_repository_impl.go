package repositories

import (
	"context"
	"time"

	"brokebuy/internal/models"

	"gorm.io/gorm"
)

type listingRepository struct {
	db *gorm.DB
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	return wrapErr("create listing", r.db.WithContext(ctx).Create(listing).Error)
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, wrapErr("get listing", err)
	}
	return &listing, nil
}

func (r *listingRepository) MarkSold(ctx context.Context, id, buyerID string, soldAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND is_sold = ?", id, false).
		Updates(map[string]interface{}{
			"is_sold":    true,
			"buyer_id":   buyerID,
			"sold_at":    soldAt,
			"updated_at": soldAt,
		})
	if result.Error != nil {
		return wrapErr("mark listing sold", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *listingRepository) CreatedSince(ctx context.Context, sellerID string, since time.Time) (WindowCount, error) {
	var row struct {
		Count  int64
		Oldest *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("COUNT(*) AS count, MIN(created_at) AS oldest").
		Where("seller_id = ? AND created_at >= ?", sellerID, since).
		Scan(&row).Error
	if err != nil {
		return WindowCount{}, wrapErr("count listings", err)
	}
	return WindowCount{Count: row.Count, Oldest: row.Oldest}, nil
}

func (r *listingRepository) SalesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Sale, error) {
	return r.sales(ctx, "seller_id = ?", sellerID, since)
}

func (r *listingRepository) SalesByBuyer(ctx context.Context, buyerID string, since time.Time) ([]models.Sale, error) {
	return r.sales(ctx, "buyer_id = ?", buyerID, since)
}

func (r *listingRepository) sales(ctx context.Context, cond string, id string, since time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("id AS listing_id, seller_id, buyer_id, price, sold_at").
		Where(cond, id).
		Where("is_sold = ? AND sold_at >= ?", true, since).
		Order("sold_at DESC").
		Scan(&sales).Error
	if err != nil {
		return nil, wrapErr("list sales", err)
	}
	return sales, nil
}

func (r *listingRepository) CountSalesBetween(ctx context.Context, sellerID, buyerID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("seller_id = ? AND buyer_id = ? AND is_sold = ? AND sold_at >= ?", sellerID, buyerID, true, since).
		Count(&count).Error
	if err != nil {
		return 0, wrapErr("count sales", err)
	}
	return count, nil
}
