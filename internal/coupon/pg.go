package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed coupon store.
type PGStore struct {
	Pool *pgxpool.Pool
}

const couponColumns = `id, store_id, code, kind, value, min_order_value, max_discount,
	usage_limit, used_count, valid_from, valid_until, active,
	applicable_categories, excluded_products`

// GetByCode fetches a coupon by its canonical code within a store.
func (s PGStore) GetByCode(ctx context.Context, storeID uuid.UUID, code string) (Coupon, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE store_id = $1 AND code = $2`,
		storeID, CanonicalCode(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return c, nil
}

// Create inserts a coupon, canonicalizing its code.
func (s PGStore) Create(ctx context.Context, c Coupon) (Coupon, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = CanonicalCode(c.Code)
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO coupons (`+couponColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.StoreID, c.Code, string(c.Type), c.Value, c.MinOrderValue, c.MaxDiscount,
		c.UsageLimit, c.UsedCount, c.ValidFrom, c.ValidUntil, c.Active,
		uuidSlice(c.ApplicableCategories), uuidSlice(c.ExcludedProducts))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Coupon{}, ErrCodeTaken
		}
		return Coupon{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return c, nil
}

// ListByStore returns all coupons of a store, newest first.
func (s PGStore) ListByStore(ctx context.Context, storeID uuid.UUID) ([]Coupon, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE store_id = $1 ORDER BY valid_from DESC`,
		storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return out, nil
}

// Deactivate switches a coupon off without deleting it.
func (s PGStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE coupons SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Redeem records usage for the order and bumps used_count with a compare-and
// -set guard, all inside one transaction. Calling it again for the same order
// is a no-op.
func (s PGStore) Redeem(ctx context.Context, couponID, orderID uuid.UUID) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO coupon_redemptions (coupon_id, order_id)
		 VALUES ($1, $2)
		 ON CONFLICT (order_id) DO NOTHING`,
		couponID, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
	}
	if tag.RowsAffected() == 0 {
		// already settled for this order
		return nil
	}

	tag, err = tx.Exec(ctx,
		`UPDATE coupons
		 SET used_count = used_count + 1
		 WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`,
		couponID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageLimitReached
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedeemFailed, err)
	}
	return nil
}

func scanCoupon(row pgx.Row) (Coupon, error) {
	var (
		c    Coupon
		kind string
	)
	err := row.Scan(&c.ID, &c.StoreID, &c.Code, &kind, &c.Value, &c.MinOrderValue,
		&c.MaxDiscount, &c.UsageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidUntil,
		&c.Active, &c.ApplicableCategories, &c.ExcludedProducts)
	if err != nil {
		return Coupon{}, err
	}
	c.Type = Type(kind)
	return c, nil
}

func uuidSlice(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return []uuid.UUID{}
	}
	return ids
}
