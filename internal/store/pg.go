package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepo is the Postgres-backed settings repository.
type PGRepo struct {
	Pool *pgxpool.Pool
}

const settingsColumns = `id, slug, name, city, contact_email, pix_key, pix_key_type, theme`

// GetBySlug loads settings by the storefront slug.
func (r PGRepo) GetBySlug(ctx context.Context, slug string) (Settings, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM stores WHERE slug = $1`,
		strings.ToLower(strings.TrimSpace(slug)))
	return scanSettings(row)
}

// GetByID loads settings by store id.
func (r PGRepo) GetByID(ctx context.Context, id uuid.UUID) (Settings, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM stores WHERE id = $1`, id)
	return scanSettings(row)
}

// UpdatePix saves the owner's PIX payment configuration.
func (r PGRepo) UpdatePix(ctx context.Context, id uuid.UUID, key string, keyType PixKeyType) error {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE stores SET pix_key = $2, pix_key_type = $3 WHERE id = $1`,
		id, key, string(keyType))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StoreIDBySlug implements tenant.StoreLookup.
func (r PGRepo) StoreIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	settings, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	return settings.ID, nil
}

func scanSettings(row pgx.Row) (Settings, error) {
	var (
		s       Settings
		keyType string
	)
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.City, &s.ContactEmail, &s.PixKey, &keyType, &s.Theme)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	s.PixKeyType = PixKeyType(keyType)
	return s, nil
}
