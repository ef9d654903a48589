package catalog_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/db"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := db.Open(context.Background(), db.Options{
		Driver:    "sqlite",
		SQLiteDSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, db.Migrate(client))
	return client
}

type testEnv struct {
	svc *catalog.Service
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	keys := 0
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Repo:   catalog.NewGormRepository(openTestDB(t).DB()),
		Cache:  catalog.NewCache(rdb, 0),
		Logger: zerolog.Nop(),
		NewKey: func() string {
			keys++
			return fmt.Sprintf("key-%d", keys)
		},
	})
	require.NoError(t, err)
	return testEnv{svc: svc, mr: mr}
}

func price(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }
