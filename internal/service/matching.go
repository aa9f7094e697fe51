package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"foodRescueCoordination/internal/geo"
	"foodRescueCoordination/models"
	"foodRescueCoordination/repository"
)

// defaultTrust is the neutral score assumed for users the reputation engine
// has not written yet.
const defaultTrust = 50

// scoredCandidate is a courier ranked for one rescue request.
type scoredCandidate struct {
	repository.CourierCandidate
	DistanceMeters float64
	Score          int64
}

// matchScore blends proximity and trust. Distance contributes up to 70
// points, scaled linearly down to zero at the search radius; trust
// contributes up to 30.
func matchScore(distanceMeters, radiusMeters float64, trust int64) int64 {
	proximity := (1 - distanceMeters/radiusMeters) * 70
	return int64(math.Round(proximity + float64(trust)*0.3))
}

// DispatchRescueRequests fans a rescue request out to the best couriers near
// an order's pickup point. Candidates outside the radius are skipped, the
// rest are ranked by match score, and the top few get a rescue_request
// notification. With no qualifying candidate the fallback clock either keeps
// running or, when FallbackOnEmpty is off, stops by clearing the search mark.
func (s *Service) DispatchRescueRequests(ctx context.Context, orderID int64) error {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if o == nil || o.Status != models.OrderStatusAwaitingCourier {
		return nil
	}
	l, err := s.Listings.GetByID(ctx, o.ListingID)
	if err != nil {
		return fmt.Errorf("get listing: %w", err)
	}
	if l == nil {
		return fmt.Errorf("listing %d not found", o.ListingID)
	}

	candidates, err := s.Couriers.ListAvailableCandidates(ctx)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}

	radius := s.cfg.Matching.RadiusMeters
	var ranked []scoredCandidate
	for _, c := range candidates {
		d := geo.HaversineMeters(c.Lat, c.Lng, l.PickupLat, l.PickupLng)
		if d > radius {
			continue
		}
		trust := int64(defaultTrust)
		if c.TrustScore != nil {
			trust = *c.TrustScore
		}
		ranked = append(ranked, scoredCandidate{
			CourierCandidate: c,
			DistanceMeters:   d,
			Score:            matchScore(d, radius, trust),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})
	if len(ranked) > s.cfg.Matching.MaxCandidates {
		ranked = ranked[:s.cfg.Matching.MaxCandidates]
	}

	if len(ranked) == 0 {
		log.Printf("[matching] order=%d no candidates within %.0fm", o.ID, radius)
		if !s.cfg.Matching.FallbackOnEmpty {
			o.SearchStartedAt = ""
			if err := s.Orders.Update(ctx, o); err != nil {
				return fmt.Errorf("clear search mark: %w", err)
			}
		}
		return nil
	}

	ns := make([]models.Notification, 0, len(ranked))
	for _, c := range ranked {
		ns = append(ns, s.note(c.UserID, models.NotificationRescueRequest,
			"Rescue request",
			fmt.Sprintf("%s needs delivery, %.1fkm away (order #%s)", l.FoodName, c.DistanceMeters/1000, o.ShortRef()),
			o, models.NotificationData{
				OrderID:        o.ID,
				ListingID:      l.ID,
				Status:         string(o.Status),
				Action:         "rescue_request",
				DistanceMeters: math.Round(c.DistanceMeters),
				MatchScore:     c.Score,
			}))
	}
	if err := s.Notifications.Insert(ctx, ns...); err != nil {
		return fmt.Errorf("insert rescue requests: %w", err)
	}
	log.Printf("[matching] order=%d notified %d couriers", o.ID, len(ranked))
	return nil
}

// SweepMatchFallbacks times out courier searches that have been running
// longer than the fallback delay. Each stale order falls back to self-pickup
// so the food still moves; its open rescue requests are retired and the
// buyer is told. Runs from a ticker, so an engine restart never loses a
// pending fallback.
func (s *Service) SweepMatchFallbacks(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-time.Duration(s.cfg.Matching.FallbackDelaySeconds) * time.Second).Format(time.RFC3339)
	stale, err := s.Orders.ListStaleAwaitingCourier(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale searches: %w", err)
	}

	for _, st := range stale {
		orderID := st.ID
		now := s.nowRFC3339()
		err := s.inTx(ctx, func(ctx context.Context, tx txScope) error {
			o, err := tx.Orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			// Re-check under the transaction; a courier may have accepted
			// between the sweep query and now.
			if o == nil || o.Status != models.OrderStatusAwaitingCourier || o.SearchStartedAt == "" {
				return nil
			}
			o.Fulfillment = models.FulfillmentSelfPickup
			o.Status = models.OrderStatusPlaced
			o.SearchStartedAt = ""
			if err := tx.Orders.Update(ctx, o); err != nil {
				return err
			}
			if err := tx.Notifications.MarkReadForOrder(ctx, o.ID, models.NotificationRescueRequest, now); err != nil {
				return err
			}
			return tx.Notifications.Insert(ctx, s.note(o.BuyerID, models.NotificationOrderUpdate,
				"No courier found",
				fmt.Sprintf("Order #%s switched to self pickup", o.ShortRef()), o,
				models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "self_pickup_fallback"}))
		})
		if err != nil {
			log.Printf("[matching] fallback order=%d: %v", orderID, err)
			continue
		}
		log.Printf("[matching] order=%d fell back to self pickup", orderID)
	}
	return nil
}

// RunMatchSweeper runs the fallback sweep on a fixed interval until the
// context is cancelled.
func (s *Service) RunMatchSweeper(ctx context.Context) {
	interval := time.Duration(s.cfg.Matching.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.SweepMatchFallbacks(ctx); err != nil {
				log.Printf("[matching] sweep: %v", err)
			}
		}
	}
}
