package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOrderNotFound is returned when an order does not exist.
var ErrOrderNotFound = errors.New("order: not found")

// Repo provides Postgres access for orders.
type Repo struct {
	Pool *pgxpool.Pool
}

// Insert persists an order and its lines inside the caller's transaction.
func (r *Repo) Insert(ctx context.Context, tx pgx.Tx, o Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, cart_id, status, subtotal, combo_allocated_discount,
			coupon_discount, delivery_charge, grand_total, coupon_code, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.CartID, o.Status, o.Subtotal, o.ComboAllocatedDiscount,
		o.CouponDiscount, o.DeliveryCharge, o.GrandTotal, o.CouponCode, o.Currency,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, line := range o.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, item_id, title, qty, unit_price, from_combo, combo_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			line.ID, o.ID, line.ItemID, line.Title, line.Qty, line.UnitPrice, line.FromCombo, line.ComboID,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// SetPayment records the payment outcome for an order.
func (r *Repo) SetPayment(ctx context.Context, id uuid.UUID, status, provider, reference string) error {
	tag, err := r.Pool.Exec(ctx,
		"UPDATE orders SET status = $2, payment_provider = $3, payment_reference = $4 WHERE id = $1",
		id, status, provider, reference,
	)
	if err != nil {
		return fmt.Errorf("set order payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Get loads one order with its lines.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT id, cart_id, status, subtotal, combo_allocated_discount, coupon_discount,
			delivery_charge, grand_total, coupon_code, currency, payment_provider,
			payment_reference, created_at
		FROM orders WHERE id = $1`, id)
	var o Order
	err := row.Scan(
		&o.ID, &o.CartID, &o.Status, &o.Subtotal, &o.ComboAllocatedDiscount, &o.CouponDiscount,
		&o.DeliveryCharge, &o.GrandTotal, &o.CouponCode, &o.Currency, &o.PaymentProvider,
		&o.PaymentReference, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT id, item_id, title, qty, unit_price, from_combo, combo_id
		FROM order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Title, &line.Qty, &line.UnitPrice, &line.FromCombo, &line.ComboID); err != nil {
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	return o, rows.Err()
}

// List returns orders without lines, newest first.
func (r *Repo) List(ctx context.Context, page, limit int) ([]Order, int64, error) {
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	var total int64
	if err := r.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, cart_id, status, subtotal, combo_allocated_discount, coupon_discount,
			delivery_charge, grand_total, coupon_code, currency, payment_provider,
			payment_reference, created_at
		FROM orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.CartID, &o.Status, &o.Subtotal, &o.ComboAllocatedDiscount, &o.CouponDiscount,
			&o.DeliveryCharge, &o.GrandTotal, &o.CouponCode, &o.Currency, &o.PaymentProvider,
			&o.PaymentReference, &o.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}
