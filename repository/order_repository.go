package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodRescueCoordination/models"
)

// orderColumns is the canonical select list shared by every order query.
const orderColumns = `id, reference, listing_id, seller_id, buyer_id, courier_id, quantity_ordered, fulfillment, status, pickup_code, handover_code, match_attempts, search_started_at, scheduled_pickup_at, placed_at, accepted_at, picked_up_at, delivered_at, cancelled_at, cancelled_by, cancel_reason, payment_status, refunded_at`

// OrderRepository is the core repository for Order entities.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts a new order. Status defaults to 'placed' if empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPlaced
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentUnpaid
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO orders (reference, listing_id, seller_id, buyer_id, courier_id, quantity_ordered, fulfillment, status, pickup_code, handover_code, match_attempts, search_started_at, scheduled_pickup_at, placed_at, payment_status)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.Reference, o.ListingID, o.SellerID, o.BuyerID, nullableID(o.CourierID), o.QuantityOrdered,
		string(o.Fulfillment), string(o.Status), nullable(o.PickupCode), o.HandoverCode,
		o.MatchAttempts, nullable(o.SearchStartedAt), nullable(o.ScheduledPickupAt), o.PlacedAt, string(o.PaymentStatus))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return o2, nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
}

// Update persists every mutable order field. Identity and creation-time
// fields (listing, parties, quantity, codes, placed_at) never change.
func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET
  courier_id = ?, fulfillment = ?, status = ?, match_attempts = ?, search_started_at = ?,
  scheduled_pickup_at = ?, accepted_at = ?, picked_up_at = ?, delivered_at = ?, cancelled_at = ?,
  cancelled_by = ?, cancel_reason = ?, payment_status = ?, refunded_at = ?
WHERE id = ?`,
		nullableID(o.CourierID), string(o.Fulfillment), string(o.Status), o.MatchAttempts, nullable(o.SearchStartedAt),
		nullable(o.ScheduledPickupAt), nullable(o.AcceptedAt), nullable(o.PickedUpAt), nullable(o.DeliveredAt), nullable(o.CancelledAt),
		nullable(string(o.CancelledBy)), nullable(o.CancelReason), string(o.PaymentStatus), nullable(o.RefundedAt),
		o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// nullable maps "" to NULL for TEXT columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableID maps a nil pointer to NULL for nullable id columns.
func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var courierID sql.NullInt64
	var fulfillment, status, payment string
	var pickupCode, searchStartedAt, scheduledPickupAt sql.NullString
	var acceptedAt, pickedUpAt, deliveredAt, cancelledAt sql.NullString
	var cancelledBy, cancelReason, refundedAt sql.NullString

	err := row.Scan(&o.ID, &o.Reference, &o.ListingID, &o.SellerID, &o.BuyerID, &courierID,
		&o.QuantityOrdered, &fulfillment, &status, &pickupCode, &o.HandoverCode,
		&o.MatchAttempts, &searchStartedAt, &scheduledPickupAt, &o.PlacedAt,
		&acceptedAt, &pickedUpAt, &deliveredAt, &cancelledAt,
		&cancelledBy, &cancelReason, &payment, &refundedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if courierID.Valid {
		v := courierID.Int64
		o.CourierID = &v
	}
	o.Fulfillment = models.Fulfillment(fulfillment)
	o.Status = models.OrderStatus(status)
	o.PickupCode = pickupCode.String
	o.SearchStartedAt = searchStartedAt.String
	o.ScheduledPickupAt = scheduledPickupAt.String
	o.AcceptedAt = acceptedAt.String
	o.PickedUpAt = pickedUpAt.String
	o.DeliveredAt = deliveredAt.String
	o.CancelledAt = cancelledAt.String
	o.CancelledBy = models.CancelActor(cancelledBy.String)
	o.CancelReason = cancelReason.String
	o.PaymentStatus = models.PaymentStatus(payment)
	o.RefundedAt = refundedAt.String
	return &o, nil
}

func scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
