package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodRescueCoordination/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CreateOrderInput carries the buyer's claim against a listing.
type CreateOrderInput struct {
	ListingID         int64
	Quantity          int64
	Fulfillment       models.Fulfillment
	ScheduledPickupAt string
}

// CreateOrder places an order against a listing for the authenticated buyer.
// Inventory is decremented in the same transaction the order row is created
// in; the listing flips to completed exactly when its quantity reaches zero.
// A courier_delivery order starts in awaiting_courier and a courier search is
// dispatched after commit.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	buyer, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, status.Error(codes.InvalidArgument, "quantity must be at least 1")
	}
	if in.Fulfillment != models.FulfillmentSelfPickup && in.Fulfillment != models.FulfillmentCourierDelivery {
		return nil, status.Errorf(codes.InvalidArgument, "unknown fulfillment %q", in.Fulfillment)
	}
	if in.ScheduledPickupAt != "" {
		if _, err := time.Parse(time.RFC3339, in.ScheduledPickupAt); err != nil {
			return nil, status.Error(codes.InvalidArgument, "scheduled_pickup_at must be RFC3339")
		}
	}

	handover, err := newCode()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	var pickup string
	if in.Fulfillment == models.FulfillmentCourierDelivery {
		if pickup, err = newCode(); err != nil {
			return nil, status.Errorf(codes.Internal, "%v", err)
		}
	}

	now := s.nowRFC3339()
	var created *models.Order
	err = s.inTx(ctx, func(ctx context.Context, tx txScope) error {
		l, err := tx.Listings.GetByID(ctx, in.ListingID)
		if err != nil {
			return status.Errorf(codes.Internal, "get listing: %v", err)
		}
		if l == nil {
			return status.Error(codes.NotFound, "listing not found")
		}
		if l.SellerID == buyer.ID {
			return status.Error(codes.FailedPrecondition, "cannot order from own listing")
		}
		if l.Status != models.ListingStatusActive {
			return status.Error(codes.FailedPrecondition, "listing is no longer active")
		}
		if l.WindowTo != "" && now > l.WindowTo {
			return status.Error(codes.FailedPrecondition, "pickup window has closed")
		}
		if in.Quantity > l.RemainingQuantity {
			return status.Errorf(codes.FailedPrecondition, "only %d remaining", l.RemainingQuantity)
		}

		l.RemainingQuantity -= in.Quantity
		if l.RemainingQuantity == 0 {
			l.Status = models.ListingStatusCompleted
		}
		if err := tx.Listings.Update(ctx, l); err != nil {
			return status.Errorf(codes.Internal, "update listing: %v", err)
		}

		o := &models.Order{
			Reference:         newReference(),
			ListingID:         l.ID,
			SellerID:          l.SellerID,
			BuyerID:           buyer.ID,
			QuantityOrdered:   in.Quantity,
			Fulfillment:       in.Fulfillment,
			Status:            models.OrderStatusPlaced,
			PickupCode:        pickup,
			HandoverCode:      handover,
			ScheduledPickupAt: in.ScheduledPickupAt,
			PlacedAt:          now,
		}
		if in.Fulfillment == models.FulfillmentCourierDelivery {
			o.Status = models.OrderStatusAwaitingCourier
			o.SearchStartedAt = now
		}
		if created, err = tx.Orders.Create(ctx, o); err != nil {
			return status.Errorf(codes.Internal, "create order: %v", err)
		}

		data := models.NotificationData{OrderID: created.ID, ListingID: l.ID, Status: string(created.Status), Action: "created"}
		return tx.Notifications.Insert(ctx,
			s.note(l.SellerID, models.NotificationOrderUpdate, "New order",
				fmt.Sprintf("Order #%s placed for %d x %s", created.ShortRef(), in.Quantity, l.FoodName),
				created, data),
			s.note(buyer.ID, models.NotificationOrderUpdate, "Order placed",
				fmt.Sprintf("Order #%s confirmed for %d x %s", created.ShortRef(), in.Quantity, l.FoodName),
				created, data),
		)
	})
	if err != nil {
		return nil, err
	}

	s.publishReputation(created.BuyerID, models.RoleBuyer)
	if created.Status == models.OrderStatusAwaitingCourier {
		s.startCourierSearch(created.ID)
	}
	return created, nil
}

// GetOrder returns an order to one of its parties or an admin.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, ok := isParty(actor, o); !ok {
		return nil, status.Error(codes.PermissionDenied, "not a party to this order")
	}
	return o, nil
}

func validStatusFilter(st *models.OrderStatus) error {
	if st != nil && !st.Known() {
		return status.Errorf(codes.InvalidArgument, "unknown status %q", *st)
	}
	return nil
}

// ListBuyerOrders returns the caller's orders as a buyer, optionally filtered
// by status.
func (s *Service) ListBuyerOrders(ctx context.Context, st *models.OrderStatus) ([]models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validStatusFilter(st); err != nil {
		return nil, err
	}
	out, err := s.Orders.ListByBuyer(ctx, actor.ID, st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list orders: %v", err)
	}
	return out, nil
}

// ListSellerOrders returns the caller's orders as a seller, optionally
// filtered by status.
func (s *Service) ListSellerOrders(ctx context.Context, st *models.OrderStatus) ([]models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validStatusFilter(st); err != nil {
		return nil, err
	}
	out, err := s.Orders.ListBySeller(ctx, actor.ID, st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list orders: %v", err)
	}
	return out, nil
}

// ListCourierOrders returns the caller's assigned orders, optionally filtered
// by status.
func (s *Service) ListCourierOrders(ctx context.Context, st *models.OrderStatus) ([]models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validStatusFilter(st); err != nil {
		return nil, err
	}
	out, err := s.Orders.ListByCourier(ctx, actor.ID, st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list orders: %v", err)
	}
	return out, nil
}

// AcceptRescueRequest assigns the calling courier to an order still awaiting
// one. The capacity slot is claimed with a guarded update inside the same
// transaction, so two couriers racing for the last slot or the same order
// resolve cleanly: one wins, the other gets FailedPrecondition.
func (s *Service) AcceptRescueRequest(ctx context.Context, orderID int64) (*models.Order, error) {
	courier, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if courier.Role != models.RoleCourier {
		return nil, status.Error(codes.PermissionDenied, "only couriers accept rescue requests")
	}

	now := s.nowRFC3339()
	var out *models.Order
	err = s.inTx(ctx, func(ctx context.Context, tx txScope) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return status.Errorf(codes.Internal, "get order: %v", err)
		}
		if o == nil {
			return status.Error(codes.NotFound, "order not found")
		}
		if o.Status != models.OrderStatusAwaitingCourier {
			return status.Errorf(codes.FailedPrecondition, "order is no longer awaiting a courier (status %s)", o.Status)
		}

		ok, err := tx.Couriers.AcquireSlot(ctx, courier.ID)
		if err != nil {
			return status.Errorf(codes.Internal, "acquire slot: %v", err)
		}
		if !ok {
			return status.Error(codes.FailedPrecondition, "courier is at capacity")
		}

		o.CourierID = &courier.ID
		o.Status = models.OrderStatusCourierAssigned
		o.AcceptedAt = now
		o.SearchStartedAt = ""
		if err := tx.Orders.Update(ctx, o); err != nil {
			return status.Errorf(codes.Internal, "update order: %v", err)
		}

		// Retire the fan-out so other couriers stop seeing a closed request.
		if err := tx.Notifications.MarkReadForOrder(ctx, o.ID, models.NotificationRescueRequest, now); err != nil {
			return status.Errorf(codes.Internal, "retire rescue requests: %v", err)
		}

		data := models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "courier_assigned"}
		if err := tx.Notifications.Insert(ctx,
			s.note(o.BuyerID, models.NotificationOrderUpdate, "Courier assigned",
				fmt.Sprintf("%s will deliver order #%s", courier.Username, o.ShortRef()), o, data),
			s.note(o.SellerID, models.NotificationOrderUpdate, "Courier assigned",
				fmt.Sprintf("%s will pick up order #%s", courier.Username, o.ShortRef()), o, data),
			s.note(courier.ID, models.NotificationOrderUpdate, "Delivery assigned",
				fmt.Sprintf("You are delivering order #%s; the seller will check your pickup code", o.ShortRef()), o, data),
		); err != nil {
			return status.Errorf(codes.Internal, "insert notifications: %v", err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyCode advances an order across a custody boundary by checking a
// single-use code. For courier_delivery the pickup code is good while the
// food is still with the seller (placed, awaiting_courier, courier_assigned)
// and moves the order to picked_up; the handover code is good once a courier
// holds it (picked_up, in_transit) and completes delivery. For self_pickup
// the handover code completes delivery from any non-terminal status. Codes
// stay valid until used; a wrong code never locks the order.
func (s *Service) VerifyCode(ctx context.Context, orderID int64, code string) (*models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.nowRFC3339()
	var out *models.Order
	var deliveredCourier *int64
	err = s.inTx(ctx, func(ctx context.Context, tx txScope) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return status.Errorf(codes.Internal, "get order: %v", err)
		}
		if o == nil {
			return status.Error(codes.NotFound, "order not found")
		}

		switch {
		case o.Fulfillment == models.FulfillmentSelfPickup:
			if o.Status.Terminal() {
				return status.Errorf(codes.FailedPrecondition, "order is already %s", o.Status)
			}
			if actor.ID != o.SellerID {
				return status.Error(codes.PermissionDenied, "only the seller confirms handover")
			}
			if code != o.HandoverCode {
				return status.Error(codes.InvalidArgument, "invalid code")
			}
			o.Status = models.OrderStatusDelivered
			o.DeliveredAt = now

		case o.Status == models.OrderStatusPlaced ||
			o.Status == models.OrderStatusAwaitingCourier ||
			o.Status == models.OrderStatusCourierAssigned:
			// Pickup stage: the food is still with the seller.
			if actor.ID != o.SellerID {
				return status.Error(codes.PermissionDenied, "only the seller confirms pickup")
			}
			if code != o.PickupCode {
				return status.Error(codes.InvalidArgument, "invalid code")
			}
			wasAwaiting := o.Status == models.OrderStatusAwaitingCourier
			o.Status = models.OrderStatusPickedUp
			o.PickedUpAt = now
			o.SearchStartedAt = ""
			if err := tx.Orders.Update(ctx, o); err != nil {
				return status.Errorf(codes.Internal, "update order: %v", err)
			}
			if wasAwaiting {
				if err := tx.Notifications.MarkReadForOrder(ctx, o.ID, models.NotificationRescueRequest, now); err != nil {
					return status.Errorf(codes.Internal, "retire rescue requests: %v", err)
				}
			}
			out = o
			return tx.Notifications.Insert(ctx, s.note(o.BuyerID, models.NotificationOrderUpdate,
				"Order picked up",
				fmt.Sprintf("Order #%s is with your courier", o.ShortRef()), o,
				models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "picked_up"}))

		case o.Status == models.OrderStatusPickedUp || o.Status == models.OrderStatusInTransit:
			// Handover stage: whoever carries the food confirms the buyer's
			// code, which is the assigned courier, or the seller when pickup
			// was confirmed before anyone accepted.
			if o.CourierID != nil {
				if actor.ID != *o.CourierID {
					return status.Error(codes.PermissionDenied, "only the assigned courier confirms handover")
				}
			} else if actor.ID != o.SellerID {
				return status.Error(codes.PermissionDenied, "only the seller confirms handover")
			}
			if code != o.HandoverCode {
				return status.Error(codes.InvalidArgument, "invalid code")
			}
			o.Status = models.OrderStatusDelivered
			o.DeliveredAt = now
			deliveredCourier = o.CourierID
			if o.CourierID != nil {
				if err := tx.Couriers.ReleaseSlot(ctx, *o.CourierID); err != nil {
					return status.Errorf(codes.Internal, "release slot: %v", err)
				}
			}

		default:
			return status.Errorf(codes.FailedPrecondition, "no code verification applies at status %s", o.Status)
		}

		if err := tx.Orders.Update(ctx, o); err != nil {
			return status.Errorf(codes.Internal, "update order: %v", err)
		}
		data := models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "delivered"}
		if err := tx.Notifications.Insert(ctx,
			s.note(o.BuyerID, models.NotificationOrderUpdate, "Order delivered",
				fmt.Sprintf("Order #%s has been delivered", o.ShortRef()), o, data),
			s.note(o.SellerID, models.NotificationOrderUpdate, "Order delivered",
				fmt.Sprintf("Order #%s has been delivered", o.ShortRef()), o, data),
		); err != nil {
			return status.Errorf(codes.Internal, "insert notifications: %v", err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Status == models.OrderStatusDelivered {
		s.publishReputation(out.BuyerID, models.RoleBuyer)
		s.publishReputation(out.SellerID, models.RoleSeller)
		if deliveredCourier != nil {
			s.publishReputation(*deliveredCourier, models.RoleCourier)
		}
	}
	return out, nil
}

// UpdateOrder applies an operational status patch outside the code
// verification flow. The assigned courier drives picked_up, in_transit, and
// delivered; an admin may additionally close a stuck order as cancelled or
// failed. Entering a terminal status releases the courier's capacity slot,
// flags a refund on a settled payment, and triggers the same reputation
// recompute as the code-verified paths.
func (s *Service) UpdateOrder(ctx context.Context, orderID int64, next models.OrderStatus) (*models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !next.Known() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", next)
	}

	now := s.nowRFC3339()
	var out *models.Order
	err = s.inTx(ctx, func(ctx context.Context, tx txScope) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return status.Errorf(codes.Internal, "get order: %v", err)
		}
		if o == nil {
			return status.Error(codes.NotFound, "order not found")
		}
		if _, ok := isParty(actor, o); !ok {
			return status.Error(codes.PermissionDenied, "not a party to this order")
		}
		if o.Status.Terminal() {
			return status.Errorf(codes.FailedPrecondition, "order is already %s", o.Status)
		}

		courierDrives := actor.Role == models.RoleAdmin || (o.CourierID != nil && actor.ID == *o.CourierID)
		switch next {
		case models.OrderStatusPickedUp:
			if !courierDrives {
				return status.Error(codes.PermissionDenied, "only the assigned courier drives delivery status")
			}
			if o.Status != models.OrderStatusCourierAssigned {
				return status.Errorf(codes.FailedPrecondition, "cannot move from %s to %s", o.Status, next)
			}
			o.PickedUpAt = now
		case models.OrderStatusInTransit:
			if !courierDrives {
				return status.Error(codes.PermissionDenied, "only the assigned courier drives delivery status")
			}
			if o.Status != models.OrderStatusPickedUp {
				return status.Errorf(codes.FailedPrecondition, "cannot move from %s to %s", o.Status, next)
			}
		case models.OrderStatusDelivered:
			if !courierDrives {
				return status.Error(codes.PermissionDenied, "only the assigned courier drives delivery status")
			}
			if o.Status != models.OrderStatusPickedUp && o.Status != models.OrderStatusInTransit {
				return status.Errorf(codes.FailedPrecondition, "cannot move from %s to %s", o.Status, next)
			}
			o.DeliveredAt = now
		case models.OrderStatusCancelled, models.OrderStatusFailed:
			if actor.Role != models.RoleAdmin {
				return status.Error(codes.PermissionDenied, "parties cancel through the cancellation flow")
			}
			o.CancelledAt = now
			o.CancelledBy = models.CancelledBySystem
			o.CancelReason = "administrative status update"
		default:
			return status.Errorf(codes.FailedPrecondition, "transition to %s is not permitted here", next)
		}

		o.Status = next
		if next.Terminal() {
			o.SearchStartedAt = ""
			if next != models.OrderStatusDelivered && o.PaymentStatus == models.PaymentPaid {
				o.PaymentStatus = models.PaymentRefunded
				o.RefundedAt = now
			}
			if o.CourierID != nil {
				if err := tx.Couriers.ReleaseSlot(ctx, *o.CourierID); err != nil {
					return status.Errorf(codes.Internal, "release slot: %v", err)
				}
			}
		}
		if err := tx.Orders.Update(ctx, o); err != nil {
			return status.Errorf(codes.Internal, "update order: %v", err)
		}
		out = o
		return tx.Notifications.Insert(ctx, s.note(o.BuyerID, models.NotificationOrderUpdate,
			"Order update",
			fmt.Sprintf("Order #%s is now %s", o.ShortRef(), o.Status), o,
			models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "status_update"}))
	})
	if err != nil {
		return nil, err
	}

	if out.Status.Terminal() {
		s.publishReputation(out.BuyerID, models.RoleBuyer)
		s.publishReputation(out.SellerID, models.RoleSeller)
		if out.CourierID != nil {
			s.publishReputation(*out.CourierID, models.RoleCourier)
		}
	}
	return out, nil
}

// ReportEmergency records a courier's emergency on an active delivery. It
// only composes the emergency notifications for buyer and seller; the order
// itself does not move. Aborting the delivery goes through CancelOrder.
func (s *Service) ReportEmergency(ctx context.Context, orderID int64, reason string) (*models.Order, error) {
	courier, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, status.Error(codes.InvalidArgument, "reason is required")
	}
	o, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CourierID == nil || courier.ID != *o.CourierID {
		return nil, status.Error(codes.PermissionDenied, "only the assigned courier reports an emergency")
	}
	switch o.Status {
	case models.OrderStatusCourierAssigned, models.OrderStatusPickedUp, models.OrderStatusInTransit:
	default:
		return nil, status.Errorf(codes.FailedPrecondition, "no active delivery at status %s", o.Status)
	}

	data := models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "emergency", Reason: reason}
	if err := s.Notifications.Insert(ctx,
		s.note(o.BuyerID, models.NotificationEmergency, "Delivery emergency",
			fmt.Sprintf("Order #%s hit a problem: %s", o.ShortRef(), reason), o, data),
		s.note(o.SellerID, models.NotificationEmergency, "Delivery emergency",
			fmt.Sprintf("Order #%s hit a problem: %s", o.ShortRef(), reason), o, data),
	); err != nil {
		return nil, status.Errorf(codes.Internal, "insert notifications: %v", err)
	}
	return o, nil
}

// MarkPaid flags an order's payment as settled. The gateway integration
// lives outside this module; this records its outcome.
func (s *Service) MarkPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.ID != o.BuyerID && actor.Role != models.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, "only the buyer settles payment")
	}
	if o.Status.Terminal() {
		return nil, status.Error(codes.FailedPrecondition, "order is already closed")
	}
	if o.PaymentStatus != models.PaymentUnpaid {
		return nil, status.Errorf(codes.FailedPrecondition, "payment is already %s", o.PaymentStatus)
	}
	o.PaymentStatus = models.PaymentPaid
	if err := s.Orders.Update(ctx, o); err != nil {
		return nil, status.Errorf(codes.Internal, "update order: %v", err)
	}
	return o, nil
}

// ListRescueRequests returns the calling courier's open rescue requests.
// Requests whose order already left awaiting_courier are retired on the way
// out instead of being shown.
func (s *Service) ListRescueRequests(ctx context.Context) ([]models.Notification, error) {
	courier, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if courier.Role != models.RoleCourier {
		return nil, status.Error(codes.PermissionDenied, "only couriers receive rescue requests")
	}
	all, err := s.Notifications.ListUnreadByType(ctx, courier.ID, models.NotificationRescueRequest)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list notifications: %v", err)
	}
	out := all[:0]
	for _, n := range all {
		o, err := s.Orders.GetByID(ctx, n.OrderID)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "get order: %v", err)
		}
		if o == nil || o.Status != models.OrderStatusAwaitingCourier {
			if err := s.Notifications.MarkReadForOrder(ctx, n.OrderID, models.NotificationRescueRequest, s.nowRFC3339()); err != nil {
				return nil, status.Errorf(codes.Internal, "retire stale request: %v", err)
			}
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	err = s.Notifications.MarkRead(ctx, notificationID, actor.ID, s.nowRFC3339())
	if errors.Is(err, sql.ErrNoRows) {
		return status.Error(codes.NotFound, "notification not found or already read")
	}
	if err != nil {
		return status.Errorf(codes.Internal, "mark read: %v", err)
	}
	return nil
}

// note builds a notification row stamped at the current instant.
func (s *Service) note(userID int64, typ models.NotificationType, title, message string, o *models.Order, data models.NotificationData) models.Notification {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	n := models.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      string(payload),
		CreatedAt: s.nowRFC3339(),
	}
	if o != nil {
		n.OrderID = o.ID
	}
	return n
}
