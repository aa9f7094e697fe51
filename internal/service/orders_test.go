package service

import (
	"context"
	"testing"
	"time"

	"foodRescueCoordination/internal/auth"
	"foodRescueCoordination/models"

	"google.golang.org/grpc/codes"
)

// hasNote reports whether the user holds an unread notification with the
// given title for the order.
func hasNote(t *testing.T, s *Service, userID, orderID int64, typ models.NotificationType, title string) bool {
	t.Helper()
	ns, err := s.Notifications.ListUnreadByType(context.Background(), userID, typ)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	for _, n := range ns {
		if n.OrderID == orderID && n.Title == title {
			return true
		}
	}
	return false
}

func TestCreateOrderDecrementsInventory(t *testing.T) {
	s := newTestService(t, "createinventory")
	ctx := context.Background()
	_, l := seedSellerWithListing(t, s, 10, 52.52, 13.405)
	buyer := seedBuyer(t, s)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 4, Fulfillment: models.FulfillmentSelfPickup})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != models.OrderStatusPlaced {
		t.Fatalf("status = %s, want placed", o.Status)
	}
	if o.HandoverCode == "" || len(o.HandoverCode) != 4 {
		t.Fatalf("expected 4-digit handover code, got %q", o.HandoverCode)
	}
	if o.PickupCode != "" {
		t.Fatalf("self pickup should not carry a pickup code")
	}

	got, _ := s.Listings.GetByID(ctx, l.ID)
	if got.RemainingQuantity != 6 {
		t.Fatalf("remaining = %d, want 6", got.RemainingQuantity)
	}

	// Claiming the rest completes the listing.
	if _, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 6, Fulfillment: models.FulfillmentSelfPickup}); err != nil {
		t.Fatalf("create rest: %v", err)
	}
	got, _ = s.Listings.GetByID(ctx, l.ID)
	if got.RemainingQuantity != 0 || got.Status != models.ListingStatusCompleted {
		t.Fatalf("listing should complete at zero: %+v", got)
	}

	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.FailedPrecondition)
}

func TestCreateOrderNotifiesBothParties(t *testing.T) {
	s := newTestService(t, "createnotify")
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !hasNote(t, s, seller.ID, o.ID, models.NotificationOrderUpdate, "New order") {
		t.Fatalf("seller was not told about the new order")
	}
	if !hasNote(t, s, buyer.ID, o.ID, models.NotificationOrderUpdate, "Order placed") {
		t.Fatalf("buyer did not get an order confirmation")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	s := newTestService(t, "createvalidation")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)

	_, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 0, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.InvalidArgument)

	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: "teleport"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup, ScheduledPickupAt: "today"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 6, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = s.CreateOrder(as(seller), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: 9999, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.NotFound)

	// Expired window.
	stale, err := s.Listings.Create(ctx, &models.Listing{
		SellerID:          seller.ID,
		FoodName:          "soup",
		RemainingQuantity: 3,
		WindowFrom:        testNow.Add(-4 * time.Hour).Format(time.RFC3339),
		WindowTo:          testNow.Add(-1 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("create stale listing: %v", err)
	}
	_, err = s.CreateOrder(as(buyer), CreateOrderInput{ListingID: stale.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.FailedPrecondition)
}

func TestActorResolution(t *testing.T) {
	s := newTestService(t, "actorresolution")
	_, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)

	// No principal in the context at all.
	_, err := s.CreateOrder(context.Background(), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.Unauthenticated)

	// A valid token for a user this engine has never seen.
	ghost := auth.WithPrincipal(context.Background(), &auth.Principal{Name: "ghost", Role: string(models.RoleBuyer)})
	_, err = s.CreateOrder(ghost, CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	wantCode(t, err, codes.NotFound)
}

func TestSelfPickupHandover(t *testing.T) {
	s := newTestService(t, "selfpickup")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 2, Fulfillment: models.FulfillmentSelfPickup})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Only the seller verifies the handover code.
	_, err = s.VerifyCode(as(buyer), o.ID, o.HandoverCode)
	wantCode(t, err, codes.PermissionDenied)

	_, err = s.VerifyCode(as(seller), o.ID, "0000")
	if o.HandoverCode == "0000" {
		t.Skip("collided with the generated code")
	}
	wantCode(t, err, codes.InvalidArgument)

	done, err := s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if done.Status != models.OrderStatusDelivered || done.DeliveredAt == "" {
		t.Fatalf("expected delivered: %+v", done)
	}

	// A delivered order admits no further verification.
	_, err = s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	wantCode(t, err, codes.FailedPrecondition)

	drainReputation(t, s)
	b, _ := s.Users.GetByID(ctx, buyer.ID)
	if b.TrustScore == nil || *b.TrustScore != 100 {
		t.Fatalf("buyer trust after one on-time delivery = %v, want 100", b.TrustScore)
	}
}

func TestCourierDeliveryFlow(t *testing.T) {
	s := newTestService(t, "courierflow")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "flow-courier", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != models.OrderStatusAwaitingCourier || o.SearchStartedAt == "" {
		t.Fatalf("expected courier search to start: %+v", o)
	}
	if o.PickupCode == "" {
		t.Fatalf("courier delivery needs a pickup code")
	}

	// Inline dispatch already fanned out the rescue request.
	reqs, err := s.ListRescueRequests(as(courier))
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("rescue requests = %d, want 1", len(reqs))
	}

	accepted, err := s.AcceptRescueRequest(as(courier), o.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.OrderStatusCourierAssigned || accepted.CourierID == nil || *accepted.CourierID != courier.ID {
		t.Fatalf("assignment not recorded: %+v", accepted)
	}
	if accepted.SearchStartedAt != "" {
		t.Fatalf("search mark should clear on accept")
	}
	p, _ := s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 1 {
		t.Fatalf("slot not claimed: %+v", p)
	}
	reqs, _ = s.ListRescueRequests(as(courier))
	if len(reqs) != 0 {
		t.Fatalf("accepted request should be retired, got %d", len(reqs))
	}
	if !hasNote(t, s, courier.ID, o.ID, models.NotificationOrderUpdate, "Delivery assigned") {
		t.Fatalf("courier did not get the assignment notification")
	}

	// Before pickup the handover code is the wrong code for the stage.
	if o.HandoverCode == o.PickupCode {
		t.Skip("generated codes collided")
	}
	_, err = s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	wantCode(t, err, codes.InvalidArgument)

	// And the courier cannot confirm their own pickup.
	_, err = s.VerifyCode(as(courier), o.ID, o.PickupCode)
	wantCode(t, err, codes.PermissionDenied)

	// Seller confirms the courier's pickup code.
	picked, err := s.VerifyCode(as(seller), o.ID, o.PickupCode)
	if err != nil {
		t.Fatalf("pickup verify: %v", err)
	}
	if picked.Status != models.OrderStatusPickedUp || picked.PickedUpAt == "" {
		t.Fatalf("expected picked_up: %+v", picked)
	}

	moving, err := s.UpdateOrder(as(courier), o.ID, models.OrderStatusInTransit)
	if err != nil {
		t.Fatalf("in transit: %v", err)
	}
	if moving.Status != models.OrderStatusInTransit {
		t.Fatalf("expected in_transit: %+v", moving)
	}

	// Only the assigned courier completes the handover.
	_, err = s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	wantCode(t, err, codes.PermissionDenied)

	done, err := s.VerifyCode(as(courier), o.ID, o.HandoverCode)
	if err != nil {
		t.Fatalf("handover verify: %v", err)
	}
	if done.Status != models.OrderStatusDelivered {
		t.Fatalf("expected delivered: %+v", done)
	}
	p, _ = s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 0 || !p.IsAvailable {
		t.Fatalf("slot not released after delivery: %+v", p)
	}

	drainReputation(t, s)
	c, _ := s.Users.GetByID(ctx, courier.ID)
	if c.TrustScore == nil || *c.TrustScore != 100 {
		t.Fatalf("courier trust = %v, want 100", c.TrustScore)
	}
}

func TestVerifyPickupBeforeAssignment(t *testing.T) {
	s := newTestService(t, "pickupearly")
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "early-courier", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.HandoverCode == o.PickupCode {
		t.Skip("generated codes collided")
	}

	// The handover code is not yet valid while the search runs.
	_, err = s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	wantCode(t, err, codes.InvalidArgument)

	// A walk-in volunteer can collect before anyone accepted: the seller
	// verifies the pickup code straight from awaiting_courier.
	picked, err := s.VerifyCode(as(seller), o.ID, o.PickupCode)
	if err != nil {
		t.Fatalf("pickup verify: %v", err)
	}
	if picked.Status != models.OrderStatusPickedUp || picked.CourierID != nil {
		t.Fatalf("expected courierless picked_up: %+v", picked)
	}
	if picked.SearchStartedAt != "" {
		t.Fatalf("search mark should clear once the food leaves the seller")
	}
	reqs, _ := s.ListRescueRequests(as(courier))
	if len(reqs) != 0 {
		t.Fatalf("rescue requests should be retired, got %d", len(reqs))
	}

	// With no courier assigned the seller completes the handover.
	done, err := s.VerifyCode(as(seller), o.ID, o.HandoverCode)
	if err != nil {
		t.Fatalf("handover verify: %v", err)
	}
	if done.Status != models.OrderStatusDelivered {
		t.Fatalf("expected delivered: %+v", done)
	}
}

func TestHandoverAtPickedUp(t *testing.T) {
	s := newTestService(t, "handoverpicked")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "hop-courier", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AcceptRescueRequest(as(courier), o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := s.VerifyCode(as(seller), o.ID, o.PickupCode); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	// A short hop never enters in_transit; the handover code still works.
	done, err := s.VerifyCode(as(courier), o.ID, o.HandoverCode)
	if err != nil {
		t.Fatalf("handover at picked_up: %v", err)
	}
	if done.Status != models.OrderStatusDelivered || done.DeliveredAt == "" {
		t.Fatalf("expected delivered: %+v", done)
	}
	p, _ := s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 0 {
		t.Fatalf("slot not released: %+v", p)
	}
}

func TestAcceptRescueRequestRejections(t *testing.T) {
	s := newTestService(t, "acceptreject")
	_, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	c1 := seedCourierAt(t, s, "acc-c1", 52.53, 13.41, 1)
	c2 := seedCourierAt(t, s, "acc-c2", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = s.AcceptRescueRequest(as(buyer), o.ID)
	wantCode(t, err, codes.PermissionDenied)

	if _, err := s.AcceptRescueRequest(as(c1), o.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	// The second courier arrives late.
	_, err = s.AcceptRescueRequest(as(c2), o.ID)
	wantCode(t, err, codes.FailedPrecondition)

	// A courier at capacity cannot take another order.
	o2, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	_, err = s.AcceptRescueRequest(as(c1), o2.ID)
	wantCode(t, err, codes.FailedPrecondition)
}

func TestUpdateOrderGuards(t *testing.T) {
	s := newTestService(t, "updateguards")
	_, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "upd-courier", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AcceptRescueRequest(as(courier), o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err = s.UpdateOrder(as(courier), o.ID, "warp")
	wantCode(t, err, codes.InvalidArgument)

	// Transit cannot start before pickup is confirmed.
	_, err = s.UpdateOrder(as(courier), o.ID, models.OrderStatusInTransit)
	wantCode(t, err, codes.FailedPrecondition)

	// Nobody jumps straight to delivered.
	_, err = s.UpdateOrder(as(courier), o.ID, models.OrderStatusDelivered)
	wantCode(t, err, codes.FailedPrecondition)

	// Someone else's courier cannot drive this order.
	_, err = s.UpdateOrder(as(buyer), o.ID, models.OrderStatusInTransit)
	wantCode(t, err, codes.PermissionDenied)

	// Parties do not close orders through the patch path.
	_, err = s.UpdateOrder(as(buyer), o.ID, models.OrderStatusCancelled)
	wantCode(t, err, codes.PermissionDenied)
}

func TestUpdateOrderTerminalSideEffects(t *testing.T) {
	s := newTestService(t, "updateterminal")
	ctx := context.Background()
	_, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "trm-courier", 52.53, 13.41, 1)
	admin := seedAdmin(t, s)

	// The courier drives the whole leg through the patch path.
	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AcceptRescueRequest(as(courier), o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	picked, err := s.UpdateOrder(as(courier), o.ID, models.OrderStatusPickedUp)
	if err != nil {
		t.Fatalf("picked_up patch: %v", err)
	}
	if picked.Status != models.OrderStatusPickedUp || picked.PickedUpAt == "" {
		t.Fatalf("expected stamped pickup: %+v", picked)
	}
	done, err := s.UpdateOrder(as(courier), o.ID, models.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("delivered patch: %v", err)
	}
	if done.Status != models.OrderStatusDelivered || done.DeliveredAt == "" {
		t.Fatalf("expected delivered: %+v", done)
	}
	p, _ := s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 0 {
		t.Fatalf("slot not released on terminal patch: %+v", p)
	}
	drainReputation(t, s)
	c, _ := s.Users.GetByID(ctx, courier.ID)
	if c.TrustScore == nil {
		t.Fatalf("terminal patch should recompute the courier's trust")
	}

	// An admin closing a stuck order releases the slot and refunds.
	o2, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := s.AcceptRescueRequest(as(courier), o2.ID); err != nil {
		t.Fatalf("accept second: %v", err)
	}
	if _, err := s.MarkPaid(as(buyer), o2.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	failed, err := s.UpdateOrder(as(admin), o2.ID, models.OrderStatusFailed)
	if err != nil {
		t.Fatalf("admin failed patch: %v", err)
	}
	if failed.Status != models.OrderStatusFailed || failed.CancelledBy != models.CancelledBySystem {
		t.Fatalf("expected system-attributed failure: %+v", failed)
	}
	if failed.PaymentStatus != models.PaymentRefunded || failed.RefundedAt == "" {
		t.Fatalf("payment should be refunded: %+v", failed)
	}
	p, _ = s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 0 {
		t.Fatalf("slot not released: %+v", p)
	}
}

func TestReportEmergency(t *testing.T) {
	s := newTestService(t, "emergency")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	courier := seedCourierAt(t, s, "emg-courier", 52.53, 13.41, 1)

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 2, Fulfillment: models.FulfillmentCourierDelivery})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AcceptRescueRequest(as(courier), o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := s.VerifyCode(as(seller), o.ID, o.PickupCode); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if _, err := s.MarkPaid(as(buyer), o.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	_, err = s.ReportEmergency(as(courier), o.ID, "")
	wantCode(t, err, codes.InvalidArgument)
	_, err = s.ReportEmergency(as(buyer), o.ID, "flat tire")
	wantCode(t, err, codes.PermissionDenied)

	if _, err := s.ReportEmergency(as(courier), o.ID, "flat tire"); err != nil {
		t.Fatalf("report: %v", err)
	}

	// The report is a message, not a transition: the order, the payment,
	// and the courier's slot all stay where they were.
	got, _ := s.Orders.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusPickedUp || got.CancelledBy != "" {
		t.Fatalf("emergency must not move the order: %+v", got)
	}
	if got.PaymentStatus != models.PaymentPaid {
		t.Fatalf("emergency must not touch payment: %+v", got)
	}
	p, _ := s.Couriers.GetByUserID(ctx, courier.ID)
	if p.ActiveOrders != 1 {
		t.Fatalf("slot should stay claimed: %+v", p)
	}
	if !hasNote(t, s, buyer.ID, o.ID, models.NotificationEmergency, "Delivery emergency") {
		t.Fatalf("buyer was not alerted")
	}
	if !hasNote(t, s, seller.ID, o.ID, models.NotificationEmergency, "Delivery emergency") {
		t.Fatalf("seller was not alerted")
	}

	// The courier can still abort for real through cancellation.
	out, err := s.CancelOrder(as(courier), o.ID, "flat tire")
	if err != nil {
		t.Fatalf("cancel after emergency: %v", err)
	}
	if out.Status != models.OrderStatusFailed {
		t.Fatalf("custody-broken cancel should fail the order: %+v", out)
	}
}

func TestGetOrderAuthorization(t *testing.T) {
	s := newTestService(t, "getorder")
	ctx := context.Background()
	seller, l := seedSellerWithListing(t, s, 5, 52.52, 13.405)
	buyer := seedBuyer(t, s)
	stranger, err := s.Users.Create(ctx, "stranger", models.RoleBuyer)
	if err != nil {
		t.Fatalf("create stranger: %v", err)
	}

	o, err := s.CreateOrder(as(buyer), CreateOrderInput{ListingID: l.ID, Quantity: 1, Fulfillment: models.FulfillmentSelfPickup})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.GetOrder(as(seller), o.ID); err != nil {
		t.Fatalf("seller get: %v", err)
	}
	_, err = s.GetOrder(as(stranger), o.ID)
	wantCode(t, err, codes.PermissionDenied)
	_, err = s.GetOrder(as(buyer), 9999)
	wantCode(t, err, codes.NotFound)
}
