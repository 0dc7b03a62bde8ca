package repositories

import (
	"context"
	"time"

	"brokebuy/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return wrapErr("create user", r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}

func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, wrapErr("lock user", err)
	}
	return &user, nil
}

func (r *userRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"wallet_balance": balance,
			"updated_at":     at,
		})
	if result.Error != nil {
		return wrapErr("update balance", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) ListBelowBalance(ctx context.Context, threshold decimal.Decimal, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("wallet_balance < ?", threshold).
		Order("wallet_balance ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, wrapErr("list users below balance", err)
	}
	return users, nil
}
