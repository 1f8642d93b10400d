package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed movement store. Rows are only ever
// inserted; there is no UPDATE or DELETE path by design.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Append inserts the movement and returns the generated id.
func (s PGStore) Append(ctx context.Context, m Movement) (uuid.UUID, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO stock_movements
			(id, store_id, product_id, variant_id, kind, qty, reason, reference, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))`,
		m.ID, m.StoreID, m.ProductID, m.VariantID, string(m.Type), m.Qty,
		m.Reason, nullableText(m.Reference), m.CreatedBy, nullableTime(m))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return m.ID, nil
}

// Query fetches movements matching the filter, newest first. A nil variant
// filter matches rows whose variant_id IS NULL when a product filter is
// present.
func (s PGStore) Query(ctx context.Context, f Filter) ([]Movement, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.StoreID != uuid.Nil {
		add("store_id = $%d", f.StoreID)
	}
	if f.ProductID != nil {
		add("product_id = $%d", *f.ProductID)
		if f.VariantID != nil {
			add("variant_id = $%d", *f.VariantID)
		} else {
			clauses = append(clauses, "variant_id IS NULL")
		}
	}
	if f.Reference != "" {
		add("reference = $%d", f.Reference)
	}
	if f.Type != "" {
		add("kind = $%d", string(f.Type))
	}
	query := `SELECT id, store_id, product_id, variant_id, kind, qty, reason,
		COALESCE(reference, ''), created_at, created_by FROM stock_movements`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			m    Movement
			kind string
		)
		if err := rows.Scan(&m.ID, &m.StoreID, &m.ProductID, &m.VariantID, &kind,
			&m.Qty, &m.Reason, &m.Reference, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		m.Type = MovementType(kind)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullableTime(m Movement) any {
	if m.CreatedAt.IsZero() {
		return nil
	}
	return m.CreatedAt
}
