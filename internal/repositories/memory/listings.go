package memory

import (
	"context"
	"sort"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
)

type listingRepo struct{ s *Store }

func (r listingRepo) Create(ctx context.Context, listing *models.Listing) error {
	return r.s.do(ctx, "listings.create", func(st *state) error {
		listing.ID = newID(listing.ID)
		if _, ok := st.listings[listing.ID]; ok {
			return repositories.ErrDuplicate
		}
		listing.CreatedAt = stamp(listing.CreatedAt)
		listing.UpdatedAt = listing.CreatedAt
		st.listings[listing.ID] = *listing
		return nil
	})
}

func (r listingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := r.s.do(ctx, "listings.get", func(st *state) error {
		l, ok := st.listings[id]
		if !ok {
			return repositories.ErrNotFound
		}
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r listingRepo) MarkSold(ctx context.Context, id, buyerID string, soldAt time.Time) error {
	return r.s.do(ctx, "listings.mark_sold", func(st *state) error {
		l, ok := st.listings[id]
		if !ok {
			return repositories.ErrNotFound
		}
		if l.IsSold {
			return repositories.ErrConflict
		}
		buyer := buyerID
		at := soldAt
		l.IsSold = true
		l.BuyerID = &buyer
		l.SoldAt = &at
		l.UpdatedAt = soldAt
		st.listings[id] = l
		return nil
	})
}

func (r listingRepo) CreatedSince(ctx context.Context, sellerID string, since time.Time) (repositories.WindowCount, error) {
	var count repositories.WindowCount
	err := r.s.do(ctx, "listings.created_since", func(st *state) error {
		for _, l := range st.listings {
			if l.SellerID == sellerID {
				created := l.CreatedAt
				inWindow(&created, since, &count)
			}
		}
		return nil
	})
	return count, err
}

func (r listingRepo) SalesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Sale, error) {
	return r.sales(ctx, since, func(l models.Listing) bool { return l.SellerID == sellerID })
}

func (r listingRepo) SalesByBuyer(ctx context.Context, buyerID string, since time.Time) ([]models.Sale, error) {
	return r.sales(ctx, since, func(l models.Listing) bool { return *l.BuyerID == buyerID })
}

func (r listingRepo) CountSalesBetween(ctx context.Context, sellerID, buyerID string, since time.Time) (int64, error) {
	sales, err := r.SalesBySeller(ctx, sellerID, since)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, sale := range sales {
		if sale.BuyerID == buyerID {
			n++
		}
	}
	return n, nil
}

func (r listingRepo) sales(ctx context.Context, since time.Time, match func(models.Listing) bool) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.s.do(ctx, "listings.sales", func(st *state) error {
		for _, l := range st.listings {
			if !l.IsSold || l.BuyerID == nil || l.SoldAt == nil || l.SoldAt.Before(since) {
				continue
			}
			if !match(l) {
				continue
			}
			sales = append(sales, models.Sale{
				ListingID: l.ID,
				SellerID:  l.SellerID,
				BuyerID:   *l.BuyerID,
				Price:     l.Price,
				SoldAt:    *l.SoldAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].SoldAt.After(sales[j].SoldAt) })
	return sales, nil
}
