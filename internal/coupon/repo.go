package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-promo/internal/discount"
)

// ErrCouponNotFound is returned when no coupon matches the given code.
var ErrCouponNotFound = errors.New("coupon: not found")

// Record is a persisted coupon definition.
type Record struct {
	ID uuid.UUID
	Definition
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repo provides Postgres access for coupons and their usage ledger.
type Repo struct {
	Pool *pgxpool.Pool
}

const couponColumns = `id, code, kind, value, percent_bps, cap, min_purchase, is_active,
	valid_from, valid_until, usage_limit, times_used, restricted_item_ids, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var kind string
	var restricted []string
	err := row.Scan(
		&rec.ID,
		&rec.Code,
		&kind,
		&rec.Rule.Value,
		&rec.Rule.PercentBps,
		&rec.Rule.Cap,
		&rec.MinPurchase,
		&rec.IsActive,
		&rec.ValidFrom,
		&rec.ValidUntil,
		&rec.UsageLimit,
		&rec.TimesUsed,
		&restricted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	parsed, err := discount.ParseKind(kind)
	if err != nil {
		return Record{}, err
	}
	rec.Rule.Kind = parsed
	for _, raw := range restricted {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Record{}, fmt.Errorf("parse restricted item id: %w", err)
		}
		rec.RestrictedItemIDs = append(rec.RestrictedItemIDs, id)
	}
	return rec, nil
}

func restrictedStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// GetByCode fetches a coupon by its code.
func (r *Repo) GetByCode(ctx context.Context, code string) (Record, error) {
	row := r.Pool.QueryRow(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = $1", code)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrCouponNotFound
		}
		return Record{}, fmt.Errorf("get coupon: %w", err)
	}
	return rec, nil
}

// GetByCodeForUpdate fetches a coupon inside a transaction with a row lock,
// so concurrent settlements serialise on the usage counter.
func (r *Repo) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (Record, error) {
	row := tx.QueryRow(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = $1 FOR UPDATE", code)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrCouponNotFound
		}
		return Record{}, fmt.Errorf("get coupon for update: %w", err)
	}
	return rec, nil
}

// List returns all coupons, newest first.
func (r *Repo) List(ctx context.Context) ([]Record, error) {
	rows, err := r.Pool.Query(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY created_at DESC, code")
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create inserts a new coupon.
func (r *Repo) Create(ctx context.Context, rec Record) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO coupons (id, code, kind, value, percent_bps, cap, min_purchase, is_active,
			valid_from, valid_until, usage_limit, restricted_item_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::uuid[])`,
		rec.ID, rec.Code, string(rec.Rule.Kind), rec.Rule.Value, rec.Rule.PercentBps, rec.Rule.Cap,
		rec.MinPurchase, rec.IsActive, rec.ValidFrom, rec.ValidUntil, rec.UsageLimit,
		restrictedStrings(rec.RestrictedItemIDs),
	)
	if err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

// Update mutates an existing coupon identified by code. The usage counter is
// deliberately not writable here.
func (r *Repo) Update(ctx context.Context, rec Record) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE coupons SET
			kind = $2, value = $3, percent_bps = $4, cap = $5, min_purchase = $6,
			is_active = $7, valid_from = $8, valid_until = $9, usage_limit = $10,
			restricted_item_ids = $11::uuid[], updated_at = now()
		WHERE code = $1`,
		rec.Code, string(rec.Rule.Kind), rec.Rule.Value, rec.Rule.PercentBps, rec.Rule.Cap,
		rec.MinPurchase, rec.IsActive, rec.ValidFrom, rec.ValidUntil, rec.UsageLimit,
		restrictedStrings(rec.RestrictedItemIDs),
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// Delete removes a coupon by code.
func (r *Repo) Delete(ctx context.Context, code string) error {
	tag, err := r.Pool.Exec(ctx, "DELETE FROM coupons WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// InsertUsage records a settlement for an order. It reports whether the row
// was new; replays of the same order are absorbed silently.
func (r *Repo) InsertUsage(ctx context.Context, tx pgx.Tx, couponID, orderID uuid.UUID, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO coupon_usages (coupon_id, order_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (coupon_id, order_id) DO NOTHING`,
		couponID, orderID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("insert coupon usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementTimesUsed bumps the usage counter after a new settlement.
func (r *Repo) IncrementTimesUsed(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		"UPDATE coupons SET times_used = times_used + 1, updated_at = now() WHERE id = $1", couponID)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}
