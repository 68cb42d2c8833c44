package combo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-promo/internal/discount"
)

// ErrComboNotFound is returned when a combo definition does not exist.
var ErrComboNotFound = errors.New("combo: definition not found")

// Repo provides Postgres access for combo definitions.
type Repo struct {
	Pool *pgxpool.Pool
}

// CreateDefinition inserts a combo and its lines in one transaction.
func (r *Repo) CreateDefinition(ctx context.Context, def Definition) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO combos (id, title, kind, value, percent_bps, cap, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		def.ID, def.Title, string(def.Rule.Kind), def.Rule.Value, def.Rule.PercentBps, def.Rule.Cap,
		def.IsActive, def.StartDate, def.EndDate,
	)
	if err != nil {
		return fmt.Errorf("insert combo: %w", err)
	}
	if err := insertLines(ctx, tx, def.ID, def.Lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateDefinition replaces a combo and its lines.
func (r *Repo) UpdateDefinition(ctx context.Context, def Definition) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE combos SET
			title = $2, kind = $3, value = $4, percent_bps = $5, cap = $6,
			is_active = $7, start_date = $8, end_date = $9, updated_at = now()
		WHERE id = $1`,
		def.ID, def.Title, string(def.Rule.Kind), def.Rule.Value, def.Rule.PercentBps, def.Rule.Cap,
		def.IsActive, def.StartDate, def.EndDate,
	)
	if err != nil {
		return fmt.Errorf("update combo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrComboNotFound
	}
	if _, err := tx.Exec(ctx, "DELETE FROM combo_items WHERE combo_id = $1", def.ID); err != nil {
		return fmt.Errorf("delete combo lines: %w", err)
	}
	if err := insertLines(ctx, tx, def.ID, def.Lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteDefinition removes a combo and its lines.
func (r *Repo) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, "DELETE FROM combos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete combo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrComboNotFound
	}
	return nil
}

// GetDefinition loads one combo with its lines.
func (r *Repo) GetDefinition(ctx context.Context, id uuid.UUID) (Definition, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT id, title, kind, value, percent_bps, cap, is_active, start_date, end_date
		FROM combos WHERE id = $1`, id)
	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, ErrComboNotFound
		}
		return Definition{}, fmt.Errorf("get combo: %w", err)
	}
	lines, err := r.linesFor(ctx, []uuid.UUID{def.ID})
	if err != nil {
		return Definition{}, err
	}
	def.Lines = lines[def.ID]
	return def, nil
}

// ListDefinitions loads all combos with lines, newest first.
func (r *Repo) ListDefinitions(ctx context.Context) ([]Definition, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, title, kind, value, percent_bps, cap, is_active, start_date, end_date
		FROM combos ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	var ids []uuid.UUID
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan combo: %w", err)
		}
		defs = append(defs, def)
		ids = append(ids, def.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		defs[i].Lines = lines[defs[i].ID]
	}
	return defs, nil
}

func scanDefinition(row pgx.Row) (Definition, error) {
	var def Definition
	var kind string
	err := row.Scan(
		&def.ID,
		&def.Title,
		&kind,
		&def.Rule.Value,
		&def.Rule.PercentBps,
		&def.Rule.Cap,
		&def.IsActive,
		&def.StartDate,
		&def.EndDate,
	)
	if err != nil {
		return Definition{}, err
	}
	parsed, err := discount.ParseKind(kind)
	if err != nil {
		return Definition{}, err
	}
	def.Rule.Kind = parsed
	return def, nil
}

func (r *Repo) linesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Line, error) {
	out := make(map[uuid.UUID][]Line, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx,
		"SELECT combo_id, item_id, qty FROM combo_items WHERE combo_id = ANY($1) ORDER BY item_id", ids)
	if err != nil {
		return nil, fmt.Errorf("list combo lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var comboID uuid.UUID
		var line Line
		if err := rows.Scan(&comboID, &line.ItemID, &line.Qty); err != nil {
			return nil, fmt.Errorf("scan combo line: %w", err)
		}
		out[comboID] = append(out[comboID], line)
	}
	return out, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, comboID uuid.UUID, lines []Line) error {
	for _, line := range lines {
		_, err := tx.Exec(ctx,
			"INSERT INTO combo_items (combo_id, item_id, qty) VALUES ($1, $2, $3)",
			comboID, line.ItemID, line.Qty,
		)
		if err != nil {
			return fmt.Errorf("insert combo line: %w", err)
		}
	}
	return nil
}
