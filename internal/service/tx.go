package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"foodRescueCoordination/repository"

	"github.com/mattn/go-sqlite3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// txScope bundles every repository re-scoped into one transaction, so a
// multi-record mutation commits or rolls back as a unit.
type txScope struct {
	Users         *repository.UserRepository
	Listings      *repository.ListingRepository
	Orders        *repository.OrderRepository
	Couriers      *repository.CourierProfileRepository
	Notifications *repository.NotificationRepository
}

// inTx runs fn inside a transaction with bounded retry. Lock conflicts
// (SQLITE_BUSY, SQLITE_LOCKED) roll back and retry with linear backoff plus
// jitter; any other error, including a status error carrying the caller's
// verdict, surfaces unchanged. Conflicts that survive every attempt become
// Aborted so the caller knows a clean retry is safe.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx txScope) error) error {
	attempts := s.cfg.Policy.TxMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isConflict(err) {
			return err
		}
		delay := time.Duration(i+1)*25*time.Millisecond + time.Duration(rand.Intn(10))*time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return status.Errorf(codes.Aborted, "transaction conflict after %d attempts: %v", attempts, err)
}

func (s *Service) runTx(ctx context.Context, fn func(ctx context.Context, tx txScope) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	scope := txScope{
		Users:         s.Users.WithTx(tx),
		Listings:      s.Listings.WithTx(tx),
		Orders:        s.Orders.WithTx(tx),
		Couriers:      s.Couriers.WithTx(tx),
		Notifications: s.Notifications.WithTx(tx),
	}
	if err := fn(ctx, scope); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isConflict reports whether err is a SQLite lock conflict worth retrying.
func isConflict(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
