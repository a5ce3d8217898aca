package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/http/middleware"
	"transit-analytics/internal/metric"
	"transit-analytics/internal/metrics"
	"transit-analytics/internal/model"
	"transit-analytics/internal/service"
)

// stubStore answers the handful of store calls these routes reach.
type stubStore struct {
	service.Store

	items   []model.RankingItem
	totals  *model.EntityTotals
	rankErr error
	pingErr error
}

func (s *stubStore) Rank(context.Context, metric.Source, model.DateRange, int) ([]model.RankingItem, error) {
	return s.items, s.rankErr
}

func (s *stubStore) EntityTotals(context.Context, model.EntityType, int64, model.DateRange) (*model.EntityTotals, error) {
	return s.totals, nil
}

func (s *stubStore) LatestSnapshot(context.Context) (*model.Snapshot, error) {
	return nil, nil
}

func (s *stubStore) Ping(context.Context) error {
	return s.pingErr
}

func newTestRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewAnalyticsService(store, service.Options{})
	return NewRouter(NewHandler(svc, zerolog.Nop()), RouterOptions{
		Environment: "test",
		Logger:      zerolog.Nop(),
		Metrics:     metrics.NewCollector(),
		Health:      store,
	})
}

func get(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestGetRanking(t *testing.T) {
	r := newTestRouter(&stubStore{items: []model.RankingItem{
		{ID: 3, Code: "L3", Value: 900},
		{ID: 2, Code: "L2", Value: 1500},
	}})

	rec, body := get(t, r, "/analytics/rankings/line?metric=passengers&from=2024-01-01&to=2024-01-31&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "L2", items[0].(map[string]any)["code"])
	assert.Equal(t, "2024-01-01", data["from"])
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		store  *stubStore
		target string
		status int
	}{
		{"invalid metric", &stubStore{}, "/analytics/rankings/line?metric=distance_km", http.StatusBadRequest},
		{"invalid limit", &stubStore{}, "/analytics/rankings/line?metric=trips&limit=0", http.StatusBadRequest},
		{"non numeric limit", &stubStore{}, "/analytics/rankings/line?metric=trips&limit=ten", http.StatusBadRequest},
		{"bad date", &stubStore{}, "/analytics/rankings/line?metric=trips&from=01/02/2024&to=2024-02-03", http.StatusBadRequest},
		{"half range", &stubStore{}, "/analytics/rankings/line?metric=trips&from=2024-02-01", http.StatusBadRequest},
		{"unknown entity", &stubStore{}, "/analytics/rankings/stop?metric=trips", http.StatusBadRequest},
		{"missing dashboard", &stubStore{}, "/analytics/dashboards/vehicle/42", http.StatusNotFound},
		{"bad dashboard id", &stubStore{}, "/analytics/dashboards/vehicle/x", http.StatusBadRequest},
		{
			"data access",
			&stubStore{rankErr: fmt.Errorf("%w: rank: %w", model.ErrDataAccess, &pgconn.PgError{Code: "57014"})},
			"/analytics/rankings/line?metric=trips",
			http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := get(t, newTestRouter(tc.store), tc.target)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDataAccessErrorIsNotLeaked(t *testing.T) {
	store := &stubStore{rankErr: errors.New("password authentication failed for user analytics")}
	_, body := get(t, newTestRouter(store), "/analytics/rankings/line?metric=trips")
	assert.Equal(t, "internal error", body["error"])
}

func TestGetFeatureCollectionIsBareGeoJSON(t *testing.T) {
	rec, body := get(t, newTestRouter(&stubStore{}), "/analytics/geo/line_stops/4103")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FeatureCollection", body["type"])
	assert.Equal(t, []any{}, body["features"])
}

func TestHealthz(t *testing.T) {
	rec, _ := get(t, newTestRouter(&stubStore{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, newTestRouter(&stubStore{pingErr: errors.New("down")}), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorsConfig(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	cfg := corsConfig([]string{"https://painel.example"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://painel.example"}, cfg.AllowOrigins)
}
