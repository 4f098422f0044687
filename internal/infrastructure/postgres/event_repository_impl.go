package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Record(ctx context.Context, ev *entity.InventoryEvent) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_events (sweet_id, user_id, kind, delta, unit_price, resulting)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, ev.SweetID, ev.UserID, ev.Kind, ev.Delta, ev.UnitPrice, ev.Resulting)

	if err := row.Scan(&ev.ID, &ev.CreatedAt); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

var _ repository.EventRepository = (*EventRepository)(nil)
