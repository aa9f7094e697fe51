package models

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationOrderUpdate   NotificationType = "order_update"
	NotificationRescueRequest NotificationType = "rescue_request"
	NotificationEmergency     NotificationType = "emergency"
)

// Notification is an immutable fact issued to one actor. The only permitted
// mutation after insert is flipping the read flag.
type Notification struct {
	ID      int64            `db:"id" json:"id"`
	UserID  int64            `db:"user_id" json:"user_id"`
	Type    NotificationType `db:"type" json:"type"`
	Title   string           `db:"title" json:"title"`
	Message string           `db:"message" json:"message"`
	// OrderID links back to the triggering order; 0 when none applies.
	OrderID int64 `db:"order_id" json:"order_id,omitempty"`
	// Data is the structured payload, JSON-encoded.
	Data      string `db:"data" json:"data"`
	IsRead    bool   `db:"is_read" json:"is_read"`
	ReadAt    string `db:"read_at" json:"read_at,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// NotificationData is the structured payload carried by a notification.
type NotificationData struct {
	OrderID        int64   `json:"order_id,omitempty"`
	ListingID      int64   `json:"listing_id,omitempty"`
	Status         string  `json:"status,omitempty"`
	Action         string  `json:"action,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	MatchScore     int64   `json:"match_score,omitempty"`
}
