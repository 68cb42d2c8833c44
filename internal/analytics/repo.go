package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo runs the reporting aggregates against Postgres. Only paid orders
// count towards revenue.
type Repo struct {
	Pool *pgxpool.Pool
}

func (r *Repo) SalesDaily(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
			COUNT(*),
			COALESCE(SUM(grand_total), 0),
			COALESCE(SUM(coupon_discount + combo_allocated_discount), 0)
		FROM orders
		WHERE status = 'paid' AND created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales daily: %w", err)
	}
	defer rows.Close()

	var out []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Day, &d.Orders, &d.Gross, &d.Discounts); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT l.item_id, l.title,
			COALESCE(SUM(l.qty), 0) AS units,
			COALESCE(SUM(l.qty::bigint * l.unit_price), 0) AS gross
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE o.status = 'paid' AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY l.item_id, l.title
		ORDER BY units DESC, gross DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	var out []TopItem
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Units, &item.Gross); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *Repo) Overview(ctx context.Context, from, to time.Time) (Overview, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(grand_total), 0),
			COALESCE(SUM(coupon_discount), 0),
			COALESCE(SUM(combo_allocated_discount), 0)
		FROM orders
		WHERE status = 'paid' AND created_at >= $1 AND created_at < $2`, from, to)
	var ov Overview
	if err := row.Scan(&ov.Orders, &ov.Gross, &ov.CouponDiscount, &ov.ComboDiscount); err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	return ov, nil
}
