package pricing_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/pricing"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func TestTotalsHandler(t *testing.T) {
	h := pricing.NewHandler(pricing.HandlerConfig{})
	body := `{"lines":[{"unitPrice":10,"quantity":2}],"tip":{"kind":"percentage","value":15}}`
	rec := httptest.NewRecorder()
	h.Totals(rec, httptest.NewRequest(http.MethodPost, "/api/pricing/totals", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp envelope[pricing.Totals]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 27.14, resp.Data.Total)
	require.Equal(t, 3.6, resp.Data.Tax)
}

func TestTotalsHandlerRejectsNegativeDiscount(t *testing.T) {
	h := pricing.NewHandler(pricing.HandlerConfig{})
	body := `{"lines":[],"discounts":{"manual":-1}}`
	rec := httptest.NewRecorder()
	h.Totals(rec, httptest.NewRequest(http.MethodPost, "/api/pricing/totals", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateHandler(t *testing.T) {
	h := pricing.NewHandler(pricing.HandlerConfig{Estimator: pricing.NewEstimator(&seqSource{values: []float64{0.5, 0}})})
	body := `{"category":"Lunch","description":"Beef Wellington","name":"Chef's Special"}`
	rec := httptest.NewRecorder()
	h.Estimate(rec, httptest.NewRequest(http.MethodPost, "/api/pricing/estimate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp envelope[struct {
		Price float64 `json:"price"`
	}]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 41.99, resp.Data.Price)
}

func TestEstimateHandlerNeedsNameOrCategory(t *testing.T) {
	h := pricing.NewHandler(pricing.HandlerConfig{})
	rec := httptest.NewRecorder()
	h.Estimate(rec, httptest.NewRequest(http.MethodPost, "/api/pricing/estimate", strings.NewReader(`{"description":"soup"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
