package translation_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/ai"
	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/db"
	"github.com/HodayaSing/ai-pos/internal/lock"
	"github.com/HodayaSing/ai-pos/internal/queue"
	"github.com/HodayaSing/ai-pos/internal/translation"
)

type prefixTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *prefixTranslator) Translate(_ context.Context, text, target string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if strings.Contains(text, "Broken") {
		return "", errors.New("model refused")
	}
	return strings.ToUpper(target) + ":" + text, nil
}

func newCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := db.Open(context.Background(), db.Options{
		Driver:    "sqlite",
		SQLiteDSN: fmt.Sprintf("file:tr_%s?mode=memory&cache=shared", name),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, db.Migrate(client))

	svc, err := catalog.NewService(catalog.ServiceConfig{Repo: catalog.NewGormRepository(client.DB()), Logger: zerolog.Nop()})
	require.NoError(t, err)
	return svc
}

func seed(t *testing.T, svc *catalog.Service, key, lang, name, desc string) catalog.Product {
	t.Helper()
	price := 10.0
	p, err := svc.Create(context.Background(), catalog.CreateInput{ProductKey: key, Language: lang, Name: name, Description: desc, Category: "Lunch", Price: &price})
	require.NoError(t, err)
	return p
}

func newService(t *testing.T, cat *catalog.Service, tr translation.Translator, q translation.Enqueuer) *translation.Service {
	t.Helper()
	svc, err := translation.NewService(translation.ServiceConfig{
		Catalog:    cat,
		Translator: tr,
		Locker:     lock.NewLocal(),
		Queue:      q,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func TestTranslateProduct(t *testing.T) {
	cat := newCatalog(t)
	p := seed(t, cat, "hummus", "en", "Hummus", "Chickpeas")
	svc := newService(t, cat, &prefixTranslator{}, nil)

	he, err := svc.TranslateProduct(context.Background(), p.ID, "he")
	require.NoError(t, err)
	require.Equal(t, "he", he.Language)
	require.Equal(t, "HE:Hummus", he.Name)
	require.Equal(t, "HE:Chickpeas", he.Description)
	require.Equal(t, "Lunch", he.Category)
	require.Equal(t, 10.0, he.PriceFloat())

	_, err = svc.TranslateProduct(context.Background(), p.ID, "en")
	require.ErrorIs(t, err, translation.ErrSameLanguage)

	_, err = svc.TranslateProduct(context.Background(), p.ID, "fr")
	require.Error(t, err)
}

func TestGenerateAllSkipsAndReportsFailures(t *testing.T) {
	cat := newCatalog(t)
	seed(t, cat, "soup", "en", "Soup", "")
	seed(t, cat, "pie", "en", "Pie", "Apple")
	seed(t, cat, "bad", "en", "Broken dish", "x")
	seed(t, cat, "pie", "he", "פאי", "תפוחים")

	tr := &prefixTranslator{}
	svc := newService(t, cat, tr, nil)

	report, err := svc.GenerateAll(context.Background(), "he", false)
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Translated)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Skipped)
	require.Len(t, report.Details, 3)

	byKey := map[string]translation.Detail{}
	for _, d := range report.Details {
		byKey[d.ProductKey] = d
	}
	require.True(t, byKey["soup"].Success)
	require.Equal(t, "HE:Soup", byKey["soup"].Translated.Name)
	require.Empty(t, byKey["soup"].Translated.Description)
	require.True(t, byKey["pie"].Skipped)
	require.False(t, byKey["bad"].Success)
	require.Contains(t, byKey["bad"].Error, "model refused")

	pie, err := cat.GetByKey(context.Background(), "pie", "he")
	require.NoError(t, err)
	require.Equal(t, "פאי", pie.Name)

	report, err = svc.GenerateAll(context.Background(), "he", true)
	require.NoError(t, err)
	require.Equal(t, 0, report.Skipped)
	pie, err = cat.GetByKey(context.Background(), "pie", "he")
	require.NoError(t, err)
	require.Equal(t, "HE:Pie", pie.Name)
}

func TestGenerateAllStopsWithoutAI(t *testing.T) {
	cat := newCatalog(t)
	seed(t, cat, "soup", "en", "Soup", "")
	seed(t, cat, "pie", "en", "Pie", "")

	tr := &prefixTranslator{err: ai.ErrNotConfigured}
	svc := newService(t, cat, tr, nil)

	_, err := svc.GenerateAll(context.Background(), "he", false)
	require.ErrorIs(t, err, ai.ErrNotConfigured)
	require.Equal(t, 1, tr.calls)
}

func TestQueuedRunIsHandledByWorker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat := newCatalog(t)
	seed(t, cat, "salad", "en", "Salad", "Green")
	enq := queue.Enqueuer{R: rdb, Prefix: "test"}
	svc := newService(t, cat, &prefixTranslator{}, enq)

	added, err := svc.Enqueue(context.Background(), "he", false)
	require.NoError(t, err)
	require.True(t, added)
	added, err = svc.Enqueue(context.Background(), "he", false)
	require.NoError(t, err)
	require.False(t, added)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = queue.Worker{R: rdb, Prefix: "test", Kind: translation.TaskKind, PollInterval: 10 * time.Millisecond, Handler: svc.HandleTask, Logger: zerolog.Nop()}.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := cat.GetByKey(context.Background(), "salad", "he")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}

func TestGenerateHandler(t *testing.T) {
	cat := newCatalog(t)
	seed(t, cat, "tea", "he", "תה", "")
	h := &translation.Handler{Svc: newService(t, cat, &prefixTranslator{}, nil)}

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-product-translations", strings.NewReader(`{"targetLanguage":"en"}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success    bool `json:"success"`
		Total      int  `json:"total"`
		Translated int  `json:"translated"`
		Details    []struct {
			Success    bool `json:"success"`
			Translated struct {
				Name string `json:"name"`
			} `json:"translated"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, 1, body.Total)
	require.Equal(t, 1, body.Translated)
	require.Equal(t, "EN:תה", body.Details[0].Translated.Name)

	req = httptest.NewRequest(http.MethodPost, "/api/ai/generate-product-translations", strings.NewReader(`{"targetLanguage":"en","async":true}`))
	rec = httptest.NewRecorder()
	h.Generate(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/ai/generate-product-translations", strings.NewReader(`{"targetLanguage":"de"}`))
	rec = httptest.NewRecorder()
	h.Generate(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
