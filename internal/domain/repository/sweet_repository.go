package repository

import (
	"context"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
)

// SweetFilter selects and pages over the catalog. All filter fields are
// optional and combine with AND. When SearchDescription is set the text
// match covers name OR description and results sort by name; otherwise it
// covers name only and results sort newest-created first. Both orderings
// tie-break on id so pagination is deterministic.
type SweetFilter struct {
	Text              string
	SearchDescription bool
	Category          string
	MinPrice          *float64
	MaxPrice          *float64
	Limit             int
	Offset            int
}

// SweetRepository defines catalog storage operations.
//
// DecrementStock and IncrementStock are the only ways stock arithmetic
// reaches the store. Both must be conditional single-round-trip updates:
// two concurrent decrements against the same row can never both succeed
// when their combined quantity exceeds the stock on hand.
type SweetRepository interface {
	Create(ctx context.Context, s *entity.Sweet) error
	GetByID(ctx context.Context, id string) (*entity.Sweet, error)
	// Update applies only the non-nil fields of upd and returns the
	// resulting record. ErrNotFound when the id does not exist.
	Update(ctx context.Context, id string, upd entity.SweetUpdate) (*entity.Sweet, error)
	// Delete removes the record. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// List returns one page plus the total count over the filtered set.
	List(ctx context.Context, f SweetFilter) ([]*entity.Sweet, int, error)
	// DecrementStock atomically subtracts qty where quantity >= qty.
	// ErrInsufficientStock when stock is too low, ErrNotFound when absent.
	DecrementStock(ctx context.Context, id string, qty int) (*entity.Sweet, error)
	// IncrementStock atomically adds qty. ErrNotFound when absent.
	IncrementStock(ctx context.Context, id string, qty int) (*entity.Sweet, error)
}

// EventRepository persists applied stock mutations for auditing.
type EventRepository interface {
	Record(ctx context.Context, ev *entity.InventoryEvent) error
}
