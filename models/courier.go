package models

// CourierProfile is the capacity ledger for one courier: the live count of
// concurrent assignments against the configured maximum.
// Invariants: ActiveOrders never exceeds MaxConcurrentOrders at a committed
// state, and IsAvailable is forced false whenever the courier is at capacity.
type CourierProfile struct {
	UserID              int64 `db:"user_id" json:"user_id"`
	IsAvailable         bool  `db:"is_available" json:"is_available"`
	ActiveOrders        int64 `db:"active_orders" json:"active_orders"`
	MaxConcurrentOrders int64 `db:"max_concurrent_orders" json:"max_concurrent_orders"`
}

// AtCapacity reports whether the courier has no free slot.
func (p *CourierProfile) AtCapacity() bool {
	return p.ActiveOrders >= p.MaxConcurrentOrders
}
