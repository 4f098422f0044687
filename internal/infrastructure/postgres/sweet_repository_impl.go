package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
)

const sweetColumns = "id, name, category, price, quantity, description, COALESCE(image_url, ''), created_at, updated_at"

// invalidTextRepresentation covers malformed uuids in the id position;
// those behave like a lookup of an id that does not exist.
const invalidTextRepresentation = "22P02"

// likeEscaper neutralizes ILIKE metacharacters in user search text, so a
// query like "100%" matches the literal string instead of everything.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type SweetRepository struct {
	pool *pgxpool.Pool
}

func NewSweetRepository(pool *pgxpool.Pool) *SweetRepository {
	return &SweetRepository{pool: pool}
}

func scanSweet(row pgx.Row) (*entity.Sweet, error) {
	s := &entity.Sweet{}
	err := row.Scan(&s.ID, &s.Name, &s.Category, &s.Price, &s.Quantity,
		&s.Description, &s.ImageURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SweetRepository) Create(ctx context.Context, s *entity.Sweet) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sweets (name, category, price, quantity, description, image_url)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING `+sweetColumns+`
	`, s.Name, s.Category, s.Price, s.Quantity, s.Description, s.ImageURL)

	created, err := scanSweet(row)
	if err != nil {
		return mapStoreErr(err)
	}
	*s = *created
	return nil
}

func (r *SweetRepository) GetByID(ctx context.Context, id string) (*entity.Sweet, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sweetColumns+` FROM sweets WHERE id = $1`, id)
	s, err := scanSweet(row)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return s, nil
}

// Update writes only the supplied fields in a single statement so a
// concurrent purchase cannot be clobbered by a stale full-record write.
func (r *SweetRepository) Update(ctx context.Context, id string, upd entity.SweetUpdate) (*entity.Sweet, error) {
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Quantity != nil {
		add("quantity", *upd.Quantity)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ImageURL != nil {
		add("image_url", *upd.ImageURL)
	}

	q := "UPDATE sweets SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + sweetColumns
	s, err := scanSweet(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return s, nil
}

func (r *SweetRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sweets WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return nil
		}
		return mapStoreErr(err)
	}
	return nil
}

func (r *SweetRepository) List(ctx context.Context, f repository.SweetFilter) ([]*entity.Sweet, int, error) {
	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Text != "" {
		pattern := "%" + likeEscaper.Replace(f.Text) + "%"
		if f.SearchDescription {
			p := arg(pattern)
			where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
		} else {
			where = append(where, "name ILIKE "+arg(pattern))
		}
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(*f.MaxPrice))
	}

	q := `SELECT ` + sweetColumns + `, COUNT(*) OVER () AS total FROM sweets`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.SearchDescription {
		q += " ORDER BY name ASC, id ASC"
	} else {
		q += " ORDER BY created_at DESC, id ASC"
	}
	q += " LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, mapStoreErr(err)
	}
	defer rows.Close()

	sweets := []*entity.Sweet{}
	total := 0
	for rows.Next() {
		s := &entity.Sweet{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Price, &s.Quantity,
			&s.Description, &s.ImageURL, &s.CreatedAt, &s.UpdatedAt, &total); err != nil {
			return nil, 0, mapStoreErr(err)
		}
		sweets = append(sweets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapStoreErr(err)
	}
	// An empty page past the end loses the window total; fetch it separately.
	if len(sweets) == 0 && f.Offset > 0 {
		cq := `SELECT COUNT(*) FROM sweets`
		if len(where) > 0 {
			cq += " WHERE " + strings.Join(where, " AND ")
		}
		if err := r.pool.QueryRow(ctx, cq, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, mapStoreErr(err)
		}
	}
	return sweets, total, nil
}

// DecrementStock is the purchase write path. The stock check and the
// decrement are one conditional statement, so concurrent purchases against
// the same row serialize on the row lock and can never oversell.
func (r *SweetRepository) DecrementStock(ctx context.Context, id string, qty int) (*entity.Sweet, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sweets
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING `+sweetColumns+`
	`, id, qty)

	s, err := scanSweet(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapRowErr(err)
	}
	// Zero rows: absent id or not enough stock. Re-read to tell them apart.
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, repository.ErrInsufficientStock
}

// IncrementStock is the restock write path, same single-statement shape.
func (r *SweetRepository) IncrementStock(ctx context.Context, id string, qty int) (*entity.Sweet, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sweets
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sweetColumns+`
	`, id, qty)

	s, err := scanSweet(row)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return s, nil
}

func mapRowErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return repository.ErrNotFound
	}
	return mapStoreErr(err)
}

func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

var _ repository.SweetRepository = (*SweetRepository)(nil)
