package repository

import (
	"context"
	"database/sql"
	"time"

	"foodRescueCoordination/models"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *NotificationRepository) WithTx(tx *sql.Tx) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// Insert stores one or more notifications. A zero-length call is a no-op.
func (r *NotificationRepository) Insert(ctx context.Context, ns ...models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i := range ns {
		n := &ns[i]
		data := n.Data
		if data == "" {
			data = "{}"
		}
		var orderID any
		if n.OrderID != 0 {
			orderID = n.OrderID
		}
		_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (user_id, type, title, message, order_id, data, is_read, created_at)
VALUES (?,?,?,?,?,?,0,?)`,
			n.UserID, string(n.Type), n.Title, n.Message, orderID, data, n.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListUnreadByType returns a user's unread notifications of the given type,
// newest first.
func (r *NotificationRepository) ListUnreadByType(ctx context.Context, userID int64, typ models.NotificationType) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, type, title, message, order_id, data, is_read, read_at, created_at
FROM notifications
WHERE user_id = ? AND type = ? AND is_read = 0
ORDER BY created_at DESC, id DESC`, userID, string(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var typ string
		var orderID sql.NullInt64
		var readAt sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &orderID, &n.Data, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		n.OrderID = orderID.Int64
		n.ReadAt = readAt.String
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks a single notification read at the given RFC3339 instant.
// The user filter makes the call a no-op against another actor's rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64, at string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND user_id = ? AND is_read = 0`, at, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkReadForOrder retires every unread notification of the given type tied to
// an order. Used to expire open rescue requests once one courier accepts.
func (r *NotificationRepository) MarkReadForOrder(ctx context.Context, orderID int64, typ models.NotificationType, at string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1, read_at = ? WHERE order_id = ? AND type = ? AND is_read = 0`,
		at, orderID, string(typ))
	return err
}
