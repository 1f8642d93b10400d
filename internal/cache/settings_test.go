package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lojinha-app/backend-lojinha/internal/store"
)

type countingRepo struct {
	settings store.Settings
	bySlug   int
	byID     int
}

func (r *countingRepo) GetBySlug(_ context.Context, slug string) (store.Settings, error) {
	r.bySlug++
	if slug != r.settings.Slug {
		return store.Settings{}, store.ErrNotFound
	}
	return r.settings, nil
}

func (r *countingRepo) GetByID(_ context.Context, id uuid.UUID) (store.Settings, error) {
	r.byID++
	if id != r.settings.ID {
		return store.Settings{}, store.ErrNotFound
	}
	return r.settings, nil
}

func (r *countingRepo) UpdatePix(_ context.Context, id uuid.UUID, key string, keyType store.PixKeyType) error {
	if id != r.settings.ID {
		return store.ErrNotFound
	}
	r.settings.PixKey = key
	r.settings.PixKeyType = keyType
	return nil
}

func newCache(t *testing.T) (SettingsCache, *countingRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &countingRepo{settings: store.Settings{
		ID:     uuid.New(),
		Slug:   "minhaloja",
		Name:   "Minha Loja",
		City:   "Recife",
		PixKey: "dono@minhaloja.com.br",
	}}
	return SettingsCache{Repo: repo, R: client, TTL: time.Minute}, repo
}

func TestGetBySlugCachesSecondRead(t *testing.T) {
	c, repo := newCache(t)
	ctx := context.Background()

	first, err := c.GetBySlug(ctx, "minhaloja")
	require.NoError(t, err)
	second, err := c.GetBySlug(ctx, "minhaloja")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, repo.bySlug)
}

func TestGetBySlugMissBypassesCache(t *testing.T) {
	c, _ := newCache(t)
	_, err := c.GetBySlug(context.Background(), "fantasma")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePixInvalidates(t *testing.T) {
	c, repo := newCache(t)
	ctx := context.Background()

	s, err := c.GetBySlug(ctx, "minhaloja")
	require.NoError(t, err)

	require.NoError(t, c.UpdatePix(ctx, s.ID, "+5581999990000", store.KeyPhone))

	updated, err := c.GetBySlug(ctx, "minhaloja")
	require.NoError(t, err)
	require.Equal(t, "+5581999990000", updated.PixKey)
	require.Equal(t, store.KeyPhone, updated.PixKeyType)
	require.Equal(t, 2, repo.bySlug)
}

func TestCacheFallsBackWithoutRedis(t *testing.T) {
	repo := &countingRepo{settings: store.Settings{ID: uuid.New(), Slug: "semcache"}}
	c := SettingsCache{Repo: repo}

	for i := 0; i < 2; i++ {
		_, err := c.GetBySlug(context.Background(), "semcache")
		require.NoError(t, err)
	}
	require.Equal(t, 2, repo.bySlug)
}
