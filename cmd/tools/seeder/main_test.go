package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/db"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client, err := db.Open(ctx, db.Options{
		Driver:    "sqlite",
		SQLiteDSN: "file:seeder_test?mode=memory&cache=shared",
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, db.Migrate(client))

	svc, err := catalog.NewService(catalog.ServiceConfig{Repo: catalog.NewGormRepository(client.DB()), Logger: zerolog.Nop()})
	require.NoError(t, err)

	items := menu[:3]
	created, skipped, err := seed(ctx, svc, items, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 3, created)
	require.Zero(t, skipped)

	he, err := svc.GetByKey(ctx, "hummus", catalog.LanguageHebrew)
	require.NoError(t, err)
	require.Equal(t, "חומוס", he.Name)
	require.Equal(t, 32.0, he.PriceFloat())
	require.Equal(t, "Starters", he.Category)

	created, skipped, err = seed(ctx, svc, items, zerolog.Nop())
	require.NoError(t, err)
	require.Zero(t, created)
	require.Equal(t, 3, skipped)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 6)
}

func TestMenuKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, item := range menu {
		require.False(t, seen[item.Key], item.Key)
		seen[item.Key] = true
		require.Positive(t, item.Price)
		require.NotEmpty(t, item.Hebrew.Name)
	}
}
