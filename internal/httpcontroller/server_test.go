package httpcontroller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovisor/visitmon/internal/conf"
	"github.com/autovisor/visitmon/internal/observability"
	"github.com/autovisor/visitmon/internal/sheets"
	"github.com/autovisor/visitmon/internal/visit"
)

type stubSource struct {
	rows []sheets.Row
}

func (s *stubSource) FetchRows(ctx context.Context) ([]sheets.Row, error) {
	return s.rows, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	settings := &conf.Settings{
		Log: conf.LogSettings{Enabled: true, Path: t.TempDir()},
		Dashboard: conf.DashboardSettings{
			Port:          "8080",
			RecentLimit:   50,
			QueryCacheTTL: 60,
		},
	}
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	loader := visit.NewService(&stubSource{rows: []sheets.Row{
		{"submitted_datetime": "2024-01-01 09:00:00", "dealer": "Dealer A", "dealer code": "A1"},
	}})

	server := New(settings, loader, metrics)
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = server.Shutdown(ctx)
	})
	return server
}

func TestServerServesDashboardIndex(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	server.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dealer Visit Analytics Dashboard")
}

func TestServerMountsAPI(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", http.NoBody)
	rec := httptest.NewRecorder()
	server.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_visits")
}

func TestServerExposesMetrics(t *testing.T) {
	server := newTestServer(t)

	// Hit the API once so loader counters have values
	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", http.NoBody)
	server.Echo.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	server.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
