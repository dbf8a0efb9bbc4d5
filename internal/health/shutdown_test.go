package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twinpizza/backend-orders/internal/health"
)

func TestReadinessGateFlipsOnShutdown(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })

	handler := health.Handler{Checker: fakeDeps{}}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	require.True(t, health.IsReady(), "gate starts open")
	rec := httptest.NewRecorder()
	handler.Ready(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	health.SetReady(false)
	require.False(t, health.IsReady())

	rec = httptest.NewRecorder()
	handler.Ready(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "shutting down")
}
