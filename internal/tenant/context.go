// Package tenant resolves which storefront a request targets. Every store
// owner gets a slug; storefront requests carry it either in a header or as
// the subdomain of the shop root domain.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

type slugKey struct{}
type storeIDKey struct{}

// WithSlug stores the resolved store slug on the context.
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugKey{}, slug)
}

// Slug extracts the store slug from the context.
func Slug(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(slugKey{}).(string)
	return v, ok && v != ""
}

// WithStoreID stores the resolved store id on the context.
func WithStoreID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, storeIDKey{}, id)
}

// StoreID extracts the store id from the context.
func StoreID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(storeIDKey{}).(uuid.UUID)
	return v, ok && v != uuid.Nil
}
