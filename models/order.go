package models

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPlaced          OrderStatus = "placed"
	OrderStatusAwaitingCourier OrderStatus = "awaiting_courier"
	OrderStatusCourierAssigned OrderStatus = "courier_assigned"
	OrderStatusPickedUp        OrderStatus = "picked_up"
	OrderStatusInTransit       OrderStatus = "in_transit"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusFailed          OrderStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusFailed
}

// Known reports whether s is one of the recognised order statuses.
func (s OrderStatus) Known() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusAwaitingCourier, OrderStatusCourierAssigned,
		OrderStatusPickedUp, OrderStatusInTransit, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Fulfillment is how the buyer takes custody of the food.
type Fulfillment string

const (
	FulfillmentSelfPickup      Fulfillment = "self_pickup"
	FulfillmentCourierDelivery Fulfillment = "courier_delivery"
)

// CancelActor identifies who initiated a cancellation.
type CancelActor string

const (
	CancelledByBuyer   CancelActor = "buyer"
	CancelledBySeller  CancelActor = "seller"
	CancelledByCourier CancelActor = "courier"
	CancelledBySystem  CancelActor = "system"
)

// PaymentStatus tracks the payment flag on an order. The gateway itself
// lives outside this module; only the flag and refund timestamp are kept.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is one buyer's claim against a Listing. Orders are never deleted;
// terminal rows remain as reputation and audit history.
// Timestamps are RFC3339 UTC strings; empty means not yet set.
type Order struct {
	ID              int64       `db:"id" json:"id"`
	Reference       string      `db:"reference" json:"reference"`
	ListingID       int64       `db:"listing_id" json:"listing_id"`
	SellerID        int64       `db:"seller_id" json:"seller_id"`
	BuyerID         int64       `db:"buyer_id" json:"buyer_id"`
	CourierID       *int64      `db:"courier_id" json:"courier_id,omitempty"`
	QuantityOrdered int64       `db:"quantity_ordered" json:"quantity_ordered"`
	Fulfillment     Fulfillment `db:"fulfillment" json:"fulfillment"`
	Status          OrderStatus `db:"status" json:"status"`

	// Single-use custody codes. PickupCode gates the seller→courier handover
	// and is only issued for courier_delivery; HandoverCode gates the final
	// handover to the buyer and is always present.
	PickupCode   string `db:"pickup_code" json:"-"`
	HandoverCode string `db:"handover_code" json:"-"`

	MatchAttempts int64 `db:"match_attempts" json:"match_attempts"`
	// SearchStartedAt marks when the current courier search began; the
	// fallback sweeper keys on it. Cleared when no fallback should fire.
	SearchStartedAt string `db:"search_started_at" json:"search_started_at,omitempty"`

	ScheduledPickupAt string `db:"scheduled_pickup_at" json:"scheduled_pickup_at,omitempty"`
	PlacedAt          string `db:"placed_at" json:"placed_at"`
	AcceptedAt        string `db:"accepted_at" json:"accepted_at,omitempty"`
	PickedUpAt        string `db:"picked_up_at" json:"picked_up_at,omitempty"`
	DeliveredAt       string `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt       string `db:"cancelled_at" json:"cancelled_at,omitempty"`

	CancelledBy  CancelActor `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelReason string      `db:"cancel_reason" json:"cancel_reason,omitempty"`

	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	RefundedAt    string        `db:"refunded_at" json:"refunded_at,omitempty"`
}

// ShortRef returns the trailing portion of the order reference used in
// human-readable notification copy.
func (o *Order) ShortRef() string {
	if len(o.Reference) <= 6 {
		return o.Reference
	}
	return o.Reference[len(o.Reference)-6:]
}
