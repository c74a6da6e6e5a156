package ops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/ratebot/core/buildinfo"
)

func fixedStats(lookups *int64) StatsSource {
	return StatsFunc(func(context.Context) Stats {
		return Stats{Sessions: 3, DispatcherErrors: 1, Lookups: lookups}
	})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(fixedStats(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStats(t *testing.T) {
	n := int64(42)
	rec := httptest.NewRecorder()
	NewRouter(fixedStats(&n)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(3), got["sessions"])
	assert.Equal(t, float64(1), got["dispatcher_errors"])
	assert.Equal(t, float64(42), got["lookups"])
	assert.Equal(t, buildinfo.Version, got["version"])
	assert.Equal(t, buildinfo.Commit, got["commit"])
}

func TestStatsWithoutJournal(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(fixedStats(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Contains(t, rec.Body.String(), `"lookups":null`)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(fixedStats(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	srv, err := Start(context.Background(), "127.0.0.1:0", fixedStats(nil))
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
}
