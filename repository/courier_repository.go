package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodRescueCoordination/models"
)

type CourierProfileRepository struct {
	db DBTX
}

func NewCourierProfileRepository(db DBTX) *CourierProfileRepository {
	return &CourierProfileRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *CourierProfileRepository) WithTx(tx *sql.Tx) *CourierProfileRepository {
	return &CourierProfileRepository{db: tx}
}

// Create inserts a capacity ledger row for a courier.
func (r *CourierProfileRepository) Create(ctx context.Context, p *models.CourierProfile) error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if p.MaxConcurrentOrders <= 0 {
		p.MaxConcurrentOrders = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO courier_profiles (user_id, is_available, active_orders, max_concurrent_orders) VALUES (?,?,?,?)`,
		p.UserID, p.IsAvailable, p.ActiveOrders, p.MaxConcurrentOrders)
	return err
}

// GetByUserID fetches the capacity ledger entry for a courier.
func (r *CourierProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.CourierProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.CourierProfile
	err := r.db.QueryRowContext(ctx, `SELECT user_id, is_available, active_orders, max_concurrent_orders FROM courier_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.IsAvailable, &p.ActiveOrders, &p.MaxConcurrentOrders)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// AcquireSlot claims one concurrent-assignment slot. The guarded UPDATE only
// succeeds while headroom exists, so a concurrent acceptor loses the race
// cleanly (zero rows affected → false). Availability auto-disables when the
// claim fills the last slot.
func (r *CourierProfileRepository) AcquireSlot(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE courier_profiles
SET active_orders = active_orders + 1,
    is_available = CASE WHEN active_orders + 1 >= max_concurrent_orders THEN 0 ELSE is_available END
WHERE user_id = ? AND active_orders < max_concurrent_orders`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseSlot frees one concurrent-assignment slot and restores availability.
// Releasing below zero is clamped; releases are idempotent per freed order.
func (r *CourierProfileRepository) ReleaseSlot(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
UPDATE courier_profiles
SET active_orders = CASE WHEN active_orders > 0 THEN active_orders - 1 ELSE 0 END,
    is_available = 1
WHERE user_id = ?`, userID)
	return err
}

// SetAvailable flips the courier's advertised availability.
func (r *CourierProfileRepository) SetAvailable(ctx context.Context, userID int64, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE courier_profiles SET is_available = ? WHERE user_id = ?`, available, userID)
	return err
}

// CourierCandidate is a matching-engine candidate row: an active courier with
// a free slot, joined with their last known location and trust score.
type CourierCandidate struct {
	UserID     int64
	Name       string
	Lat        float64
	Lng        float64
	TrustScore *int64
}

// ListAvailableCandidates returns all couriers eligible for matching: role
// courier, active account, advertised available, and below their concurrency
// limit. Distance filtering happens in the matching engine.
func (r *CourierProfileRepository) ListAvailableCandidates(ctx context.Context) ([]CourierCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.username, u.lat, u.lng, u.trust_score
FROM users u
JOIN courier_profiles p ON p.user_id = u.id
WHERE u.role = 'courier'
  AND u.is_active = 1
  AND p.is_available = 1
  AND p.active_orders < p.max_concurrent_orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CourierCandidate
	for rows.Next() {
		var c CourierCandidate
		var trust sql.NullInt64
		if err := rows.Scan(&c.UserID, &c.Name, &c.Lat, &c.Lng, &trust); err != nil {
			return nil, err
		}
		if trust.Valid {
			v := trust.Int64
			c.TrustScore = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
