package entity

import "time"

// Inventory event kinds.
const (
	EventPurchase = "purchase"
	EventRestock  = "restock"
)

// InventoryEvent is one applied stock mutation, kept as an audit trail.
// Delta is negative for purchases and positive for restocks.
type InventoryEvent struct {
	ID        int64
	SweetID   string
	UserID    string
	Kind      string
	Delta     int
	UnitPrice float64
	Resulting int
	CreatedAt time.Time
}
