package service

import (
	"context"
	"fmt"
	"time"

	"foodRescueCoordination/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CancelOrder applies the cancellation policy. Gates run in a fixed order:
// terminal rejection, the per-role rate gate, the buyer pickup cutoff. What
// happens next depends on custody: an order already picked up fails without
// restoring inventory; a courier dropping an assignment requeues the order
// for matching until the attempt limit, then hard-cancels; everything else
// is a standard cancellation that restores the listing's quantity.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string) (*models.Order, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	// Pre-checks read the committed row; the transaction below revalidates
	// status so a racing transition still loses cleanly.
	o, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	as, ok := isParty(actor, o)
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "not a party to this order")
	}
	if o.Status.Terminal() {
		return nil, status.Errorf(codes.FailedPrecondition, "order is already %s", o.Status)
	}

	if as != models.CancelledBySystem {
		since := now.Add(-time.Duration(s.cfg.Policy.CancelWindowHours) * time.Hour).Format(time.RFC3339)
		n, err := s.Orders.CountRecentCancellations(ctx, as, actor.ID, since)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "count cancellations: %v", err)
		}
		if n >= s.cfg.Policy.CancelLimit {
			return nil, status.Errorf(codes.FailedPrecondition,
				"cancellation limit reached (%d in %dh)", s.cfg.Policy.CancelLimit, s.cfg.Policy.CancelWindowHours)
		}
	}

	if as == models.CancelledByBuyer && o.ScheduledPickupAt != "" {
		sched, err := time.Parse(time.RFC3339, o.ScheduledPickupAt)
		if err == nil && !now.Before(sched.Add(-time.Duration(s.cfg.Policy.BuyerCutoffMinutes)*time.Minute)) {
			return nil, status.Errorf(codes.FailedPrecondition,
				"too close to scheduled pickup to cancel (%dm cutoff)", s.cfg.Policy.BuyerCutoffMinutes)
		}
	}

	var out *models.Order
	var requeued bool
	var droppedCourier int64
	err = s.inTx(ctx, func(ctx context.Context, tx txScope) error {
		requeued = false
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return status.Errorf(codes.Internal, "get order: %v", err)
		}
		if o == nil {
			return status.Error(codes.NotFound, "order not found")
		}
		if o.Status.Terminal() {
			return status.Errorf(codes.FailedPrecondition, "order is already %s", o.Status)
		}

		switch {
		case o.Status == models.OrderStatusPickedUp || o.Status == models.OrderStatusInTransit:
			// Custody has moved; the food cannot be relisted.
			return s.failInCustody(ctx, tx, o, as, reason, nowStr)

		case as == models.CancelledByCourier && o.Status == models.OrderStatusCourierAssigned:
			droppedCourier = *o.CourierID
			requeued, err = s.courierDrop(ctx, tx, o, reason, nowStr)
			return err

		default:
			return s.standardCancel(ctx, tx, o, as, reason, nowStr)
		}
	})
	if err != nil {
		return nil, err
	}
	out, err = s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reload order: %v", err)
	}

	s.publishReputation(out.BuyerID, models.RoleBuyer)
	s.publishReputation(out.SellerID, models.RoleSeller)
	if out.CourierID != nil {
		s.publishReputation(*out.CourierID, models.RoleCourier)
	} else if droppedCourier != 0 {
		s.publishReputation(droppedCourier, models.RoleCourier)
	}

	if requeued {
		s.startCourierSearch(orderID)
	}
	return out, nil
}

// failInCustody closes an order whose goods already left the seller. No
// inventory comes back; the buyer's payment, if settled, is flagged refunded.
func (s *Service) failInCustody(ctx context.Context, tx txScope, o *models.Order, as models.CancelActor, reason, now string) error {
	o.Status = models.OrderStatusFailed
	o.CancelledAt = now
	o.CancelledBy = as
	o.CancelReason = reason
	if o.PaymentStatus == models.PaymentPaid {
		o.PaymentStatus = models.PaymentRefunded
		o.RefundedAt = now
	}
	if err := tx.Orders.Update(ctx, o); err != nil {
		return status.Errorf(codes.Internal, "update order: %v", err)
	}
	if o.CourierID != nil {
		if err := tx.Couriers.ReleaseSlot(ctx, *o.CourierID); err != nil {
			return status.Errorf(codes.Internal, "release slot: %v", err)
		}
	}
	return s.notifyClosed(ctx, tx, o, as, "Order failed",
		fmt.Sprintf("Order #%s failed mid-delivery", o.ShortRef()))
}

// courierDrop releases the dropping courier and either requeues the order for
// another match or, once the attempt limit is spent, hard-cancels it as a
// system cancellation. Returns whether a new courier search should start.
func (s *Service) courierDrop(ctx context.Context, tx txScope, o *models.Order, reason, now string) (bool, error) {
	courierID := *o.CourierID
	if err := tx.Couriers.ReleaseSlot(ctx, courierID); err != nil {
		return false, status.Errorf(codes.Internal, "release slot: %v", err)
	}
	o.CourierID = nil
	o.AcceptedAt = ""
	o.MatchAttempts++

	if o.MatchAttempts >= s.cfg.Matching.MaxMatchAttempts {
		// The food stays claimed; repeated drops do not put it back on offer.
		o.Status = models.OrderStatusCancelled
		o.CancelledAt = now
		o.CancelledBy = models.CancelledBySystem
		o.CancelReason = "no courier could complete the delivery"
		o.SearchStartedAt = ""
		if o.PaymentStatus == models.PaymentPaid {
			o.PaymentStatus = models.PaymentRefunded
			o.RefundedAt = now
		}
		if err := tx.Orders.Update(ctx, o); err != nil {
			return false, status.Errorf(codes.Internal, "update order: %v", err)
		}
		return false, s.notifyClosed(ctx, tx, o, models.CancelledBySystem, "Order cancelled",
			fmt.Sprintf("Order #%s was cancelled; no courier could complete the delivery", o.ShortRef()))
	}

	o.Status = models.OrderStatusAwaitingCourier
	o.SearchStartedAt = now
	if err := tx.Orders.Update(ctx, o); err != nil {
		return false, status.Errorf(codes.Internal, "update order: %v", err)
	}

	// The order lives on, so the drop is tracked through match_attempts
	// rather than cancelled_by.
	data := models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "requeued", Reason: reason}
	err := tx.Notifications.Insert(ctx,
		s.note(o.BuyerID, models.NotificationOrderUpdate, "Finding a new courier",
			fmt.Sprintf("The courier for order #%s withdrew; searching again", o.ShortRef()), o, data),
		s.note(o.SellerID, models.NotificationOrderUpdate, "Finding a new courier",
			fmt.Sprintf("The courier for order #%s withdrew; searching again", o.ShortRef()), o, data))
	if err != nil {
		return false, status.Errorf(codes.Internal, "insert notifications: %v", err)
	}
	return true, nil
}

// standardCancel restores the listing's inventory and closes the order as
// cancelled. A completed listing whose quantity comes back above zero reopens.
func (s *Service) standardCancel(ctx context.Context, tx txScope, o *models.Order, as models.CancelActor, reason, now string) error {
	l, err := tx.Listings.GetByID(ctx, o.ListingID)
	if err != nil {
		return status.Errorf(codes.Internal, "get listing: %v", err)
	}
	if l != nil {
		l.RemainingQuantity += o.QuantityOrdered
		if l.Status == models.ListingStatusCompleted && l.RemainingQuantity > 0 {
			l.Status = models.ListingStatusActive
		}
		if err := tx.Listings.Update(ctx, l); err != nil {
			return status.Errorf(codes.Internal, "update listing: %v", err)
		}
	}

	wasAwaiting := o.Status == models.OrderStatusAwaitingCourier
	o.Status = models.OrderStatusCancelled
	o.CancelledAt = now
	o.CancelledBy = as
	o.CancelReason = reason
	o.SearchStartedAt = ""
	if o.PaymentStatus == models.PaymentPaid {
		o.PaymentStatus = models.PaymentRefunded
		o.RefundedAt = now
	}
	if o.CourierID != nil {
		if err := tx.Couriers.ReleaseSlot(ctx, *o.CourierID); err != nil {
			return status.Errorf(codes.Internal, "release slot: %v", err)
		}
	}
	if err := tx.Orders.Update(ctx, o); err != nil {
		return status.Errorf(codes.Internal, "update order: %v", err)
	}
	if wasAwaiting {
		if err := tx.Notifications.MarkReadForOrder(ctx, o.ID, models.NotificationRescueRequest, now); err != nil {
			return status.Errorf(codes.Internal, "retire rescue requests: %v", err)
		}
	}
	return s.notifyClosed(ctx, tx, o, as, "Order cancelled",
		fmt.Sprintf("Order #%s was cancelled", o.ShortRef()))
}

// notifyClosed informs every party other than the closing actor.
func (s *Service) notifyClosed(ctx context.Context, tx txScope, o *models.Order, as models.CancelActor, title, message string) error {
	data := models.NotificationData{OrderID: o.ID, ListingID: o.ListingID, Status: string(o.Status), Action: "closed", Reason: o.CancelReason}
	var ns []models.Notification
	if as != models.CancelledByBuyer {
		ns = append(ns, s.note(o.BuyerID, models.NotificationOrderUpdate, title, message, o, data))
	}
	if as != models.CancelledBySeller {
		ns = append(ns, s.note(o.SellerID, models.NotificationOrderUpdate, title, message, o, data))
	}
	if o.CourierID != nil && as != models.CancelledByCourier {
		ns = append(ns, s.note(*o.CourierID, models.NotificationOrderUpdate, title, message, o, data))
	}
	if err := tx.Notifications.Insert(ctx, ns...); err != nil {
		return status.Errorf(codes.Internal, "insert notifications: %v", err)
	}
	return nil
}
