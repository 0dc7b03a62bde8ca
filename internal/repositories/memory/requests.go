package memory

import (
	"context"
	"sort"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
)

type requestRepo struct{ s *Store }

func (r requestRepo) Create(ctx context.Context, req *models.PurchaseRequest) error {
	return r.s.do(ctx, "requests.create", func(st *state) error {
		for _, existing := range st.requests {
			if existing.ListingID == req.ListingID && existing.BuyerID == req.BuyerID && existing.IsOpen() {
				return repositories.ErrDuplicate
			}
		}
		req.ID = newID(req.ID)
		if req.Status == "" {
			req.Status = models.RequestPending
		}
		req.CreatedAt = stamp(req.CreatedAt)
		req.UpdatedAt = req.CreatedAt
		st.requests[req.ID] = *req
		return nil
	})
}

func (r requestRepo) GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.s.do(ctx, "requests.get", func(st *state) error {
		found, ok := st.requests[id]
		if !ok {
			return repositories.ErrNotFound
		}
		req = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r requestRepo) FindOpen(ctx context.Context, listingID, buyerID string) (*models.PurchaseRequest, error) {
	reqs, err := r.filter(ctx, "requests.find_open", func(req models.PurchaseRequest) bool {
		return req.ListingID == listingID && req.BuyerID == buyerID && req.IsOpen()
	})
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &reqs[0], nil
}

func (r requestRepo) ListByListing(ctx context.Context, listingID string) ([]models.PurchaseRequest, error) {
	return r.filter(ctx, "requests.list_by_listing", func(req models.PurchaseRequest) bool {
		return req.ListingID == listingID
	})
}

func (r requestRepo) ListByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error) {
	reqs, err := r.filter(ctx, "requests.list_by_buyer", func(req models.PurchaseRequest) bool {
		return req.BuyerID == buyerID
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(reqs)-1; i < j; i, j = i+1, j-1 {
		reqs[i], reqs[j] = reqs[j], reqs[i]
	}
	return reqs, nil
}

func (r requestRepo) Transition(ctx context.Context, id string, to models.RequestStatus, reason string, at time.Time) error {
	return r.s.do(ctx, "requests.transition", func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repositories.ErrNotFound
		}
		if req.Status != models.RequestPending {
			return repositories.ErrConflict
		}
		req.Status = to
		req.DeclineReason = reason
		req.UpdatedAt = at
		st.requests[id] = req
		return nil
	})
}

func (r requestRepo) DeclinePending(ctx context.Context, listingID, exceptID, reason string, at time.Time) ([]models.PurchaseRequest, error) {
	var declined []models.PurchaseRequest
	err := r.s.do(ctx, "requests.decline_pending", func(st *state) error {
		for id, req := range st.requests {
			if req.ListingID != listingID || id == exceptID || req.Status != models.RequestPending {
				continue
			}
			req.Status = models.RequestDeclined
			req.DeclineReason = reason
			req.UpdatedAt = at
			st.requests[id] = req
			declined = append(declined, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(declined)
	return declined, nil
}

// filter returns matching requests oldest first.
func (r requestRepo) filter(ctx context.Context, op string, match func(models.PurchaseRequest) bool) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := r.s.do(ctx, op, func(st *state) error {
		for _, req := range st.requests {
			if match(req) {
				reqs = append(reqs, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(reqs)
	return reqs, nil
}

func sortByCreated(reqs []models.PurchaseRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}
