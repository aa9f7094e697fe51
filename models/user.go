package models

// Role classifies an actor. A user holds exactly one role.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleCourier Role = "courier"
	RoleAdmin   Role = "admin"
)

// AccountStatus is derived from the trust score; no operation may set it
// independently.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountWarned AccountStatus = "warned"
	AccountLocked AccountStatus = "locked"
)

// AccountStatusForScore maps a trust score to account standing.
func AccountStatusForScore(score int64) AccountStatus {
	switch {
	case score < 10:
		return AccountLocked
	case score < 20:
		return AccountWarned
	default:
		return AccountActive
	}
}

// User represents a buyer, seller, courier, or admin.
// TrustScore is nil until the reputation engine first writes it; matching
// treats nil as the neutral default of 50.
type User struct {
	ID            int64         `db:"id" json:"id"`
	Username      string        `db:"username" json:"username"`
	Role          Role          `db:"role" json:"role"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	Lat           float64       `db:"lat" json:"lat"`
	Lng           float64       `db:"lng" json:"lng"`
	TrustScore    *int64        `db:"trust_score" json:"trust_score,omitempty"`
	AccountStatus AccountStatus `db:"account_status" json:"account_status"`
}
