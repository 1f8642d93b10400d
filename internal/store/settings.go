// Package store holds the per-tenant storefront settings the checkout flow
// depends on: merchant identity and PIX payment configuration.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown store slugs or ids.
	ErrNotFound = errors.New("store not found")
	// ErrLookupFailed wraps infrastructure failures during settings reads.
	ErrLookupFailed = errors.New("store lookup failed")
)

// PixKeyType enumerates the alias kinds accepted by the payment system.
type PixKeyType string

const (
	KeyCPF    PixKeyType = "cpf"
	KeyCNPJ   PixKeyType = "cnpj"
	KeyEmail  PixKeyType = "email"
	KeyPhone  PixKeyType = "phone"
	KeyRandom PixKeyType = "random"
)

// Settings is the storefront configuration record. PixKey may be empty when
// the owner has not configured payments yet; checkout treats that as a
// precondition failure, not an encoder error.
type Settings struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	City         string
	ContactEmail string
	PixKey       string
	PixKeyType   PixKeyType
	Theme        string
}

// Repo is the settings persistence collaborator.
type Repo interface {
	GetBySlug(ctx context.Context, slug string) (Settings, error)
	GetByID(ctx context.Context, id uuid.UUID) (Settings, error)
	UpdatePix(ctx context.Context, id uuid.UUID, key string, keyType PixKeyType) error
}
