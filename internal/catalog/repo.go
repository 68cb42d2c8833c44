package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound is returned when an item does not exist.
var ErrItemNotFound = errors.New("catalog: item not found")

// Repo provides Postgres access for catalog items.
type Repo struct {
	Pool *pgxpool.Pool
}

const itemColumns = "id, sku, title, base_price, sale_percent_bps, stock, is_active, created_at, updated_at"

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(
		&it.ID,
		&it.SKU,
		&it.Title,
		&it.BasePrice,
		&it.SalePercentBps,
		&it.Stock,
		&it.IsActive,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	return it, err
}

// GetItem fetches a single item by id.
func (r *Repo) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	row := r.Pool.QueryRow(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1", id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// GetItemsByIDs fetches the items whose ids are in the given set. Missing ids
// are simply absent from the result.
func (r *Repo) GetItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.Pool.Query(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("list items by ids: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListParams captures filters for item listing.
type ListParams struct {
	Query   string
	InStock bool
	Page    int
	Limit   int
}

// ListItems returns active items matching the filters plus the total count.
func (r *Repo) ListItems(ctx context.Context, params ListParams) ([]Item, int64, error) {
	where := []string{"is_active"}
	args := []any{}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if params.InStock {
		where = append(where, "stock > 0")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM items WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(
		"SELECT %s FROM items WHERE %s ORDER BY title, id LIMIT $%d OFFSET $%d",
		itemColumns, cond, len(args)-1, len(args),
	)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

// UpsertItem inserts or updates an item keyed by id. Used by the seeder and
// admin tooling.
func (r *Repo) UpsertItem(ctx context.Context, it Item) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO items (id, sku, title, base_price, sale_percent_bps, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			title = EXCLUDED.title,
			base_price = EXCLUDED.base_price,
			sale_percent_bps = EXCLUDED.sale_percent_bps,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active,
			updated_at = now()`,
		it.ID, it.SKU, it.Title, it.BasePrice, it.SalePercentBps, it.Stock, it.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// AdjustStock decrements stock for an item, failing if it would go negative.
func (r *Repo) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int32) error {
	tag, err := tx.Exec(ctx,
		"UPDATE items SET stock = stock + $2, updated_at = now() WHERE id = $1 AND stock + $2 >= 0",
		id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjust stock for %s: insufficient stock", id)
	}
	return nil
}
