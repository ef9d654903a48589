package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/health"
)

func TestDrainingFailsReadinessButNotLiveness(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })
	handler := health.Handler{Checker: stubChecker{redisErr: health.ErrDisabled}}

	health.SetReady(false)

	ready := httptest.NewRecorder()
	handler.Ready(ready, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, ready.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(ready.Body.Bytes(), &status))
	require.Equal(t, map[string]string{"db": "ok", "redis": "disabled", "server": "draining"}, status)

	live := httptest.NewRecorder()
	handler.Live(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, live.Code)

	health.SetReady(true)
	again := httptest.NewRecorder()
	handler.Ready(again, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, again.Code)
}
