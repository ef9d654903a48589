package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/common"
)

func TestWriteErrorMapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	common.WriteError(rec, common.NotFound("Product not found", errors.New("record not found")))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body common.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "Product not found", body.Error)
	require.Equal(t, "NOT_FOUND", body.Code)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	common.WriteError(rec, errors.New("dial tcp 10.0.0.1: refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	common.Success(rec, http.StatusCreated, map[string]int{"id": 7})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":true,"data":{"id":7}}`, rec.Body.String())
}

type createPayload struct {
	Name     string   `json:"name" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gt=0"`
	Language string   `json:"language" validate:"omitempty,oneof=en he"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Soup","price":4.5}`))
		var p createPayload
		require.NoError(t, common.DecodeJSON(req, &p))
		require.Equal(t, "Soup", p.Name)
		require.InDelta(t, 4.5, *p.Price, 1e-9)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price":-1,"language":"fr"}`))
		var p createPayload
		err := common.DecodeJSON(req, &p)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		details, ok := appErr.Details.(map[string]string)
		require.True(t, ok)
		require.Equal(t, "is required", details["name"])
		require.Equal(t, "must be greater than 0", details["price"])
		require.Equal(t, "must be one of en he", details["language"])
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p createPayload
		err := common.DecodeJSON(req, &p)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		require.Equal(t, "invalid JSON payload", appErr.Message)
	})
}
