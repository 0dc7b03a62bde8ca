package memory

import (
	"context"
	"sort"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"

	"github.com/shopspring/decimal"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.do(ctx, "users.create", func(st *state) error {
		user.ID = newID(user.ID)
		if _, ok := st.users[user.ID]; ok {
			return repositories.ErrDuplicate
		}
		user.CreatedAt = stamp(user.CreatedAt)
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, "users.get", id)
}

func (r userRepo) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, "users.get_for_update", id)
}

func (r userRepo) get(ctx context.Context, op, id string) (*models.User, error) {
	var user models.User
	err := r.s.do(ctx, op, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repositories.ErrNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r userRepo) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, at time.Time) error {
	return r.s.do(ctx, "users.update_balance", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repositories.ErrNotFound
		}
		u.WalletBalance = balance
		u.UpdatedAt = at
		st.users[id] = u
		return nil
	})
}

func (r userRepo) ListBelowBalance(ctx context.Context, threshold decimal.Decimal, limit int) ([]models.User, error) {
	var users []models.User
	err := r.s.do(ctx, "users.list_below_balance", func(st *state) error {
		for _, u := range st.users {
			if u.WalletBalance.LessThan(threshold) {
				users = append(users, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].WalletBalance.LessThan(users[j].WalletBalance)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
