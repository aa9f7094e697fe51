package service

import (
	"context"
	"log"
	"math"
	"time"

	"foodRescueCoordination/models"
)

// reputationEvent asks the reputation worker to recompute one user's trust
// score for the role they played in the triggering order.
type reputationEvent struct {
	UserID int64
	Role   models.Role
}

// publishReputation queues a recompute without blocking the caller. A full
// queue drops the event; the next terminal transition for the same user
// recomputes over the same history anyway.
func (s *Service) publishReputation(userID int64, role models.Role) {
	select {
	case s.repEvents <- reputationEvent{UserID: userID, Role: role}:
	default:
		log.Printf("[reputation] queue full, dropped recompute for user=%d", userID)
	}
}

// RunReputationWorker consumes reputation events until the context is
// cancelled. A single consumer serialises writes to trust scores.
func (s *Service) RunReputationWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.repEvents:
			if err := s.RecomputeTrust(ctx, ev.UserID, ev.Role); err != nil {
				log.Printf("[reputation] recompute user=%d role=%s: %v", ev.UserID, ev.Role, err)
			}
		}
	}
}

// RecomputeTrust recalculates one user's trust score from their order
// history. Buyers are scored over every order they placed; sellers and
// couriers only over orders that reached a terminal status. The account
// status is derived from the score in the same write.
func (s *Service) RecomputeTrust(ctx context.Context, userID int64, role models.Role) error {
	var orders []models.Order
	var err error
	var by models.CancelActor
	switch role {
	case models.RoleBuyer:
		orders, err = s.Orders.ListByBuyer(ctx, userID, nil)
		by = models.CancelledByBuyer
	case models.RoleSeller:
		orders, err = s.Orders.ListTerminalBySeller(ctx, userID)
		by = models.CancelledBySeller
	case models.RoleCourier:
		orders, err = s.Orders.ListTerminalByCourier(ctx, userID)
		by = models.CancelledByCourier
	default:
		return nil
	}
	if err != nil {
		return err
	}

	score := trustScore(orders, by)
	return s.Users.SetTrust(ctx, userID, score, models.AccountStatusForScore(score))
}

// trustScore derives a 0..100 trust score from an order history. Completion
// raises it, failures the actor is responsible for lower it, and punctual
// deliveries raise it further. An empty history scores the neutral default.
func trustScore(orders []models.Order, by models.CancelActor) int64 {
	total := len(orders)
	if total == 0 {
		return defaultTrust
	}

	var delivered, responsible, onTime int
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusDelivered:
			delivered++
			if deliveredOnTime(&o) {
				onTime++
			}
		case models.OrderStatusCancelled:
			if o.CancelledBy == by {
				responsible++
			}
		case models.OrderStatusFailed:
			responsible++
		}
	}

	completionRate := float64(delivered) / float64(total)
	responsibleRate := float64(responsible) / float64(total)
	onTimeRate := 0.0
	if delivered > 0 {
		onTimeRate = float64(onTime) / float64(delivered)
	}

	score := int64(math.Round(50 + completionRate*30 - responsibleRate*30 + onTimeRate*20))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// deliveredOnTime reports whether a delivered order landed within an hour of
// its scheduled pickup. Orders without a schedule count as on time.
func deliveredOnTime(o *models.Order) bool {
	if o.ScheduledPickupAt == "" {
		return true
	}
	sched, err := time.Parse(time.RFC3339, o.ScheduledPickupAt)
	if err != nil {
		return true
	}
	done, err := time.Parse(time.RFC3339, o.DeliveredAt)
	if err != nil {
		return false
	}
	return !done.After(sched.Add(time.Hour))
}
