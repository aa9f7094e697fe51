package repository

import (
	"context"
	"time"

	"foodRescueCoordination/models"
)

// terminalSet matches models.OrderStatus.Terminal.
const terminalSet = `('delivered','cancelled','failed')`

func (r *OrderRepository) listByParty(ctx context.Context, column string, partyID int64, status *models.OrderStatus) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = ?`
	args := []any{partyID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY placed_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListByBuyer returns a buyer's orders, newest first, optionally filtered by
// status.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64, status *models.OrderStatus) ([]models.Order, error) {
	return r.listByParty(ctx, "buyer_id", buyerID, status)
}

// ListBySeller returns a seller's orders, newest first, optionally filtered by
// status.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID int64, status *models.OrderStatus) ([]models.Order, error) {
	return r.listByParty(ctx, "seller_id", sellerID, status)
}

// ListByCourier returns a courier's assigned orders, newest first, optionally
// filtered by status.
func (r *OrderRepository) ListByCourier(ctx context.Context, courierID int64, status *models.OrderStatus) ([]models.Order, error) {
	return r.listByParty(ctx, "courier_id", courierID, status)
}

func (r *OrderRepository) listTerminal(ctx context.Context, column string, partyID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = ? AND status IN `+terminalSet, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListTerminalBySeller returns a seller's orders that reached a terminal
// status. The reputation engine scores sellers over this set only.
func (r *OrderRepository) ListTerminalBySeller(ctx context.Context, sellerID int64) ([]models.Order, error) {
	return r.listTerminal(ctx, "seller_id", sellerID)
}

// ListTerminalByCourier returns a courier's orders that reached a terminal
// status.
func (r *OrderRepository) ListTerminalByCourier(ctx context.Context, courierID int64) ([]models.Order, error) {
	return r.listTerminal(ctx, "courier_id", courierID)
}

// CountRecentCancellations counts cancellations attributed to the given actor
// since the given RFC3339 instant. Each role's counter is independent, so a
// courier's drops never consume the same user's buyer allowance.
func (r *OrderRepository) CountRecentCancellations(ctx context.Context, by models.CancelActor, actorID int64, since string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var column string
	switch by {
	case models.CancelledByBuyer:
		column = "buyer_id"
	case models.CancelledBySeller:
		column = "seller_id"
	case models.CancelledByCourier:
		column = "courier_id"
	default:
		return 0, nil
	}
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE cancelled_by = ? AND `+column+` = ? AND cancelled_at >= ?`,
		string(by), actorID, since).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListStaleAwaitingCourier returns orders still waiting for a courier whose
// search began at or before the given RFC3339 instant. The fallback sweeper
// polls this to time out stalled searches.
func (r *OrderRepository) ListStaleAwaitingCourier(ctx context.Context, before string) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE status = 'awaiting_courier'
  AND search_started_at IS NOT NULL
  AND search_started_at <= ?
ORDER BY search_started_at ASC`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}
