package repository

import (
	"context"
	"database/sql"

	"foodRescueCoordination/models"
)

// DBTX is the subset of database/sql used by repositories. Both *sql.DB and
// *sql.Tx satisfy it, so a repository can be re-scoped into a transaction
// with WithTx when several records must commit as one atomic unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username string, role models.Role) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	SetLocation(ctx context.Context, id int64, lat, lng float64) error
	SetTrust(ctx context.Context, id int64, score int64, accountStatus models.AccountStatus) error
}

// ListingRepositoryI defines operations on Listing entities.
type ListingRepositoryI interface {
	Create(ctx context.Context, l *models.Listing) (*models.Listing, error)
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	Update(ctx context.Context, l *models.Listing) error
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
	ListByBuyer(ctx context.Context, buyerID int64, status *models.OrderStatus) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID int64, status *models.OrderStatus) ([]models.Order, error)
	ListByCourier(ctx context.Context, courierID int64, status *models.OrderStatus) ([]models.Order, error)
	ListTerminalBySeller(ctx context.Context, sellerID int64) ([]models.Order, error)
	ListTerminalByCourier(ctx context.Context, courierID int64) ([]models.Order, error)
	CountRecentCancellations(ctx context.Context, by models.CancelActor, actorID int64, since string) (int64, error)
	ListStaleAwaitingCourier(ctx context.Context, before string) ([]models.Order, error)
}

// CourierProfileRepositoryI defines operations on the capacity ledger.
type CourierProfileRepositoryI interface {
	Create(ctx context.Context, p *models.CourierProfile) error
	GetByUserID(ctx context.Context, userID int64) (*models.CourierProfile, error)
	AcquireSlot(ctx context.Context, userID int64) (bool, error)
	ReleaseSlot(ctx context.Context, userID int64) error
	ListAvailableCandidates(ctx context.Context) ([]CourierCandidate, error)
}

// NotificationRepositoryI defines operations on Notification entities.
type NotificationRepositoryI interface {
	Insert(ctx context.Context, ns ...models.Notification) error
	ListUnreadByType(ctx context.Context, userID int64, typ models.NotificationType) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64, at string) error
	MarkReadForOrder(ctx context.Context, orderID int64, typ models.NotificationType, at string) error
}
