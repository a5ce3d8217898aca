package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec   // route, method, status code
	HTTPDuration *prometheus.HistogramVec // route, method

	QueryDuration *prometheus.HistogramVec // operation
	QueryErrors   *prometheus.CounterVec   // operation
	CacheLookups  *prometheus.CounterVec   // operation, result: hit|miss
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_analytics_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_analytics_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"route", "method"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_analytics_query_duration_seconds",
			Help:    "Warehouse query latency per analytics operation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"operation"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_analytics_query_errors_total",
			Help: "Failed warehouse queries per analytics operation.",
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_analytics_cache_lookups_total",
			Help: "Result cache lookups.",
		}, []string{"operation", "result"}),
	}

	reg.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.QueryDuration, c.QueryErrors, c.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) ObserveQuery(operation string, elapsed time.Duration, err error) {
	c.QueryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		c.QueryErrors.WithLabelValues(operation).Inc()
	}
}

func (c *Collector) CacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(operation, result).Inc()
}

func (c *Collector) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
