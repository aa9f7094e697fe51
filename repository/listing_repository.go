package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodRescueCoordination/models"
)

type ListingRepository struct {
	db DBTX
}

func NewListingRepository(db DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *ListingRepository) WithTx(tx *sql.Tx) *ListingRepository {
	return &ListingRepository{db: tx}
}

// Create inserts a new listing. Status defaults to 'active' if empty.
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	if l == nil {
		return nil, errors.New("listing is nil")
	}
	if l.Status == "" {
		l.Status = models.ListingStatusActive
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO listings (seller_id, food_name, remaining_quantity, status, pickup_lat, pickup_lng, window_from, window_to) VALUES (?,?,?,?,?,?,?,?)`,
		l.SellerID, l.FoodName, l.RemainingQuantity, string(l.Status), l.PickupLat, l.PickupLng, l.WindowFrom, l.WindowTo)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	l.ID = id
	return l, nil
}

// GetByID fetches a listing by its ID.
func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var l models.Listing
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT id, seller_id, food_name, remaining_quantity, status, pickup_lat, pickup_lng, window_from, window_to FROM listings WHERE id = ?`, id).
		Scan(&l.ID, &l.SellerID, &l.FoodName, &l.RemainingQuantity, &status, &l.PickupLat, &l.PickupLng, &l.WindowFrom, &l.WindowTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	l.Status = models.ListingStatus(status)
	return &l, nil
}

// Update persists the mutable listing fields (quantity and status).
func (r *ListingRepository) Update(ctx context.Context, l *models.Listing) error {
	if l == nil {
		return errors.New("listing is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET remaining_quantity = ?, status = ? WHERE id = ?`,
		l.RemainingQuantity, string(l.Status), l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
