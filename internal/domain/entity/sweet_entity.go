package entity

import "time"

// Sweet is the aggregate root for the catalog domain.
// Quantity is the purchasable stock on hand and never goes below zero;
// all stock arithmetic happens in the store, not in application memory.
type Sweet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SweetUpdate carries a partial update; nil fields are left untouched.
type SweetUpdate struct {
	Name        *string
	Category    *string
	Price       *float64
	Quantity    *int
	Description *string
	ImageURL    *string
}

// Empty reports whether the update would write nothing.
func (u SweetUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Price == nil &&
		u.Quantity == nil && u.Description == nil && u.ImageURL == nil
}
