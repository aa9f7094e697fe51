package models

// ListingStatus is the claimability state of a listing.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusCompleted ListingStatus = "completed"
)

// Listing is a postable quantity of surplus food with a pickup window and
// location. remaining_quantity reaches 0 exactly when status flips to
// completed; a restorative cancellation that raises it above 0 reopens
// the listing.
type Listing struct {
	ID                int64         `db:"id" json:"id"`
	SellerID          int64         `db:"seller_id" json:"seller_id"`
	FoodName          string        `db:"food_name" json:"food_name"`
	RemainingQuantity int64         `db:"remaining_quantity" json:"remaining_quantity"`
	Status            ListingStatus `db:"status" json:"status"`
	PickupLat         float64       `db:"pickup_lat" json:"pickup_lat"`
	PickupLng         float64       `db:"pickup_lng" json:"pickup_lng"`
	// Pickup window bounds, RFC3339 UTC.
	WindowFrom string `db:"window_from" json:"window_from"`
	WindowTo   string `db:"window_to" json:"window_to"`
}
