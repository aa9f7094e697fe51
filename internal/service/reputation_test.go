package service

import (
	"context"
	"testing"

	"foodRescueCoordination/models"
)

func order(st models.OrderStatus, by models.CancelActor, scheduled, delivered string) models.Order {
	return models.Order{Status: st, CancelledBy: by, ScheduledPickupAt: scheduled, DeliveredAt: delivered}
}

func TestTrustScore(t *testing.T) {
	tests := []struct {
		name   string
		orders []models.Order
		by     models.CancelActor
		want   int64
	}{
		{
			name: "empty history is neutral",
			want: 50,
		},
		{
			name:   "one punctual delivery",
			orders: []models.Order{order(models.OrderStatusDelivered, "", "", "")},
			by:     models.CancelledByBuyer,
			want:   100,
		},
		{
			name: "late delivery loses the punctuality bonus",
			orders: []models.Order{
				order(models.OrderStatusDelivered, "", "2026-08-29T10:00:00Z", "2026-08-29T12:30:00Z"),
			},
			by:   models.CancelledByBuyer,
			want: 80,
		},
		{
			name: "own cancellations count against, others do not",
			orders: []models.Order{
				order(models.OrderStatusDelivered, "", "", ""),
				order(models.OrderStatusCancelled, models.CancelledByBuyer, "", ""),
				order(models.OrderStatusCancelled, models.CancelledBySeller, "", ""),
			},
			by: models.CancelledByBuyer,
			// 50 + 1/3*30 - 1/3*30 + 1*20
			want: 70,
		},
		{
			name: "failures always count against",
			orders: []models.Order{
				order(models.OrderStatusFailed, models.CancelledBySystem, "", ""),
				order(models.OrderStatusFailed, models.CancelledBySystem, "", ""),
			},
			by:   models.CancelledByCourier,
			want: 20,
		},
		{
			name: "active orders dilute without punishing",
			orders: []models.Order{
				order(models.OrderStatusDelivered, "", "", ""),
				order(models.OrderStatusPlaced, "", "", ""),
			},
			by: models.CancelledByBuyer,
			// 50 + 15 - 0 + 20
			want: 85,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := trustScore(tc.orders, tc.by); got != tc.want {
				t.Fatalf("trustScore = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTrustScoreFloor(t *testing.T) {
	// An all-responsible history bottoms out at the formula's floor.
	var bad []models.Order
	for i := 0; i < 4; i++ {
		bad = append(bad, order(models.OrderStatusFailed, models.CancelledBySystem, "", ""))
	}
	if got := trustScore(bad, models.CancelledByCourier); got != 20 {
		t.Fatalf("trustScore(all failed) = %d, want 20", got)
	}
}

func TestRecomputeTrustWritesAccountStatus(t *testing.T) {
	s := newTestService(t, "reputationstatus")
	ctx := context.Background()
	_, l := seedSellerWithListing(t, s, 20, 52.52, 13.405)
	buyer := seedBuyer(t, s)

	// A string of buyer cancellations drags the score to the floor.
	for i := 0; i < 4; i++ {
		o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		o.Status = models.OrderStatusCancelled
		o.CancelledBy = models.CancelledByBuyer
		o.CancelledAt = s.nowRFC3339()
		if err := s.Orders.Update(ctx, o); err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
	}

	if err := s.RecomputeTrust(ctx, buyer.ID, models.RoleBuyer); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	got, _ := s.Users.GetByID(ctx, buyer.ID)
	if got.TrustScore == nil || *got.TrustScore != 20 {
		t.Fatalf("trust = %v, want 20", got.TrustScore)
	}
	if got.AccountStatus != models.AccountActive {
		t.Fatalf("status = %s, want active at 20", got.AccountStatus)
	}

	// Sub-floor scores come from administrative writes, not the formula.
	if models.AccountStatusForScore(15) != models.AccountWarned {
		t.Fatalf("15 should map to warned")
	}

	// A locked account cannot place further orders.
	if err := s.Users.SetTrust(ctx, buyer.ID, 5, models.AccountStatusForScore(5)); err != nil {
		t.Fatalf("set trust: %v", err)
	}
	if _, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup}); err == nil {
		t.Fatalf("expected rejection for locked account")
	}
}
