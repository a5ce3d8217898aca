package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	c.ObserveQuery("rank", 10*time.Millisecond, nil)
	c.ObserveQuery("rank", 10*time.Millisecond, errors.New("boom"))
	c.CacheLookup("rank", true)
	c.CacheLookup("rank", false)
	c.CacheLookup("rank", false)
	c.ObserveRequest("/api/v1/lines", http.MethodGet, http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueryErrors.WithLabelValues("rank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("rank", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("rank", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/api/v1/lines", http.MethodGet, "200")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := NewCollector()
	c.CacheLookup("dashboard", true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "transit_analytics_cache_lookups_total"))
}
