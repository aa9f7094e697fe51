package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"math/big"
	"time"

	"foodRescueCoordination/internal/config"
	"foodRescueCoordination/models"
	"foodRescueCoordination/repository"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service is the order coordination engine. It owns the order state machine,
// the cancellation policy, the matching engine, and the reputation engine,
// all over one SQLite handle.
type Service struct {
	db  *sql.DB
	cfg *config.Config

	Users         *repository.UserRepository
	Listings      *repository.ListingRepository
	Orders        *repository.OrderRepository
	Couriers      *repository.CourierProfileRepository
	Notifications *repository.NotificationRepository

	repEvents chan reputationEvent

	// now is replaceable in tests.
	now func() time.Time
	// dispatchAsync moves courier searches off the request path. Tests
	// disable it so dispatch happens inline.
	dispatchAsync bool
}

// New wires a Service over the given database handle.
func New(db *sql.DB, cfg *config.Config) *Service {
	return &Service{
		db:            db,
		cfg:           cfg,
		Users:         repository.NewUserRepository(db),
		Listings:      repository.NewListingRepository(db),
		Orders:        repository.NewOrderRepository(db),
		Couriers:      repository.NewCourierProfileRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		repEvents:     make(chan reputationEvent, 256),
		now:           time.Now,
		dispatchAsync: true,
	}
}

// startCourierSearch dispatches rescue requests for an order, in the
// background unless inline dispatch is configured.
func (s *Service) startCourierSearch(orderID int64) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.DispatchRescueRequests(ctx, orderID); err != nil {
			log.Printf("[matching] dispatch order=%d: %v", orderID, err)
		}
	}
	if s.dispatchAsync {
		go run()
		return
	}
	run()
}

// nowRFC3339 returns the current instant as an RFC3339 UTC string, the
// canonical timestamp representation throughout the schema.
func (s *Service) nowRFC3339() string {
	return s.now().UTC().Format(time.RFC3339)
}

// newCode draws a single-use 4-digit custody code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// newReference mints the external order reference.
func newReference() string {
	return uuid.NewString()
}

// requireOrder loads an order or fails with NotFound.
func (s *Service) requireOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get order: %v", err)
	}
	if o == nil {
		return nil, status.Error(codes.NotFound, "order not found")
	}
	return o, nil
}

// isParty reports whether the user participates in the order, and as what.
func isParty(u *models.User, o *models.Order) (models.CancelActor, bool) {
	switch {
	case u.ID == o.BuyerID:
		return models.CancelledByBuyer, true
	case u.ID == o.SellerID:
		return models.CancelledBySeller, true
	case o.CourierID != nil && u.ID == *o.CourierID:
		return models.CancelledByCourier, true
	case u.Role == models.RoleAdmin:
		return models.CancelledBySystem, true
	}
	return "", false
}
