package catalog_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/common"
)

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, catalog.CreateInput{Name: "Soup", Category: "Starters"})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "Name, category, and price are required fields", appErr.Message)

	_, err = env.svc.Create(ctx, catalog.CreateInput{Name: "Soup", Category: "Starters", Price: price(0)})
	appErr, ok = common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "Price must be a positive number", appErr.Message)

	_, err = env.svc.Create(ctx, catalog.CreateInput{Name: "Soup", Category: "Starters", Price: price(3), Language: "fr"})
	require.Error(t, err)
}

func TestCreateAndFetch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.svc.Create(ctx, catalog.CreateInput{
		Name:        " Shakshuka ",
		Description: "Eggs in tomato sauce",
		Category:    "Breakfast",
		Price:       price(12.499),
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Equal(t, "key-1", p.ProductKey)
	require.Equal(t, catalog.LanguageEnglish, p.Language)
	require.Equal(t, "Shakshuka", p.Name)
	require.Equal(t, "12.5", p.Price.String())

	got, err := env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 12.5, got.ToView().Price)
	require.Nil(t, got.ToView().Image)

	_, err = env.svc.Get(ctx, p.ID+100)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = env.svc.Create(ctx, catalog.CreateInput{ProductKey: "key-1", Name: "Dup", Category: "Breakfast", Price: price(1)})
	require.ErrorIs(t, err, catalog.ErrDuplicate)
}

func TestListCachesAndInvalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, catalog.CreateInput{Name: "Tea", Category: "Beverages", Price: price(3)})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, env.mr.Exists("catalog:products:g1:all"))

	_, err = env.svc.List(ctx, catalog.LanguageEnglish)
	require.NoError(t, err)
	require.True(t, env.mr.Exists("catalog:products:g1:lang:en"))

	_, err = env.svc.Create(ctx, catalog.CreateInput{Name: "תה", Category: "Beverages", Price: price(3), Language: "he"})
	require.NoError(t, err)
	require.False(t, env.mr.Exists("catalog:products:g1:all"))
	require.False(t, env.mr.Exists("catalog:products:g1:lang:en"))

	he, err := env.svc.ListByLanguage(ctx, catalog.LanguageHebrew)
	require.NoError(t, err)
	require.Len(t, he, 1)
	require.Equal(t, "תה", he[0].Name)
	require.True(t, env.mr.Exists("catalog:products:g2:lang:he"))

	all, err = env.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

// slowListRepo runs afterList once, between the database read and the cache fill.
type slowListRepo struct {
	catalog.Repository
	afterList func()
}

func (r *slowListRepo) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	products, err := r.Repository.List(ctx, f)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return products, err
}

func TestListDoesNotCacheReadOverlappingWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &slowListRepo{Repository: catalog.NewGormRepository(openTestDB(t).DB())}
	svc, err := catalog.NewService(catalog.ServiceConfig{Repo: repo, Cache: catalog.NewCache(rdb, 0), Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()

	repo.afterList = func() {
		_, err := svc.Create(ctx, catalog.CreateInput{Name: "Shakshuka", Category: "Breakfast", Price: price(48)})
		require.NoError(t, err)
	}
	stale, err := svc.List(ctx, catalog.LanguageEnglish)
	require.NoError(t, err)
	require.Empty(t, stale)

	fresh, err := svc.List(ctx, catalog.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, "Shakshuka", fresh[0].Name)
}

func TestListByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, in := range []catalog.CreateInput{
		{Name: "Cake", Category: "Desserts", Price: price(7)},
		{Name: "Tea", Category: "Beverages", Price: price(3)},
		{Name: "Pie", Category: "Desserts", Price: price(6)},
	} {
		_, err := env.svc.Create(ctx, in)
		require.NoError(t, err)
	}
	desserts, err := env.svc.ListByCategory(ctx, "Desserts")
	require.NoError(t, err)
	require.Len(t, desserts, 2)
	require.Equal(t, "Cake", desserts[0].Name)
	require.Equal(t, "Pie", desserts[1].Name)
}

func TestUpdatePartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, err := env.svc.Create(ctx, catalog.CreateInput{Name: "Toast", Description: "Sourdough", Category: "Breakfast", Price: price(5)})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, p.ID, catalog.UpdateInput{Price: price(6.75)})
	require.NoError(t, err)
	require.Equal(t, "Toast", updated.Name)
	require.Equal(t, "Sourdough", updated.Description)
	require.Equal(t, 6.75, updated.ToView().Price)

	_, err = env.svc.Update(ctx, p.ID, catalog.UpdateInput{Price: price(-1)})
	require.Error(t, err)
	_, err = env.svc.Update(ctx, p.ID, catalog.UpdateInput{Name: strPtr("  ")})
	require.Error(t, err)
	_, err = env.svc.Update(ctx, 999, catalog.UpdateInput{Name: strPtr("Ghost")})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestTranslationsAndUpsertLocale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	en, err := env.svc.Create(ctx, catalog.CreateInput{
		ProductKey: "falafel",
		Name:       "Falafel plate",
		Category:   "Lunch",
		Price:      price(14),
		Image:      "http://localhost:3000/uploads/product-1.png",
	})
	require.NoError(t, err)

	he, created, err := env.svc.UpsertLocale(ctx, "falafel", "he", catalog.UpdateInput{Name: strPtr("צלחת פלאפל"), Description: strPtr("עם חומוס")})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Lunch", he.Category)
	require.True(t, en.Price.Equal(he.Price))
	require.Equal(t, en.Image, he.Image)

	again, created, err := env.svc.UpsertLocale(ctx, "falafel", "he", catalog.UpdateInput{Description: strPtr("עם טחינה")})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, he.ID, again.ID)
	require.Equal(t, "עם טחינה", again.Description)

	locales, err := env.svc.Translations(ctx, "falafel")
	require.NoError(t, err)
	require.Len(t, locales, 2)
	require.Equal(t, "Falafel plate", locales["en"].Name)

	_, err = env.svc.Translations(ctx, "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, _, err = env.svc.UpsertLocale(ctx, "brand-new", "en", catalog.UpdateInput{Name: strPtr("Lonely")})
	require.Error(t, err, "a new key without siblings still needs category and price")

	byKey, err := env.svc.GetByKey(ctx, "falafel", "he")
	require.NoError(t, err)
	require.Equal(t, he.ID, byKey.ID)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, err := env.svc.Create(ctx, catalog.CreateInput{Name: "Tea", Category: "Beverages", Price: price(3)})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, p.ID))
	require.ErrorIs(t, env.svc.Delete(ctx, p.ID), catalog.ErrNotFound)
}
