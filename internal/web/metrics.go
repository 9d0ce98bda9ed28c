package web

import (
	"strconv"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	panelRenders    *prometheus.CounterVec
	panelDuration   *prometheus.HistogramVec
	insightRequests *prometheus.CounterVec
	insightDuration prometheus.Histogram
}

func newMetrics(cache *dataset.Cache, sessions *sessionStore) *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	m := &metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odap_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odap_uploads_total",
			Help: "Dataset uploads by outcome",
		}, []string{"result"}),
		panelRenders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odap_panel_renders_total",
			Help: "Dashboard panels rendered by kind and status",
		}, []string{"panel", "status"}),
		panelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odap_panel_render_seconds",
			Help:    "Time spent rendering a dashboard panel",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"panel"}),
		insightRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odap_insight_requests_total",
			Help: "Insight requests by outcome",
		}, []string{"result"}),
		insightDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "odap_insight_request_seconds",
			Help:    "Latency of insight requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "odap_sessions",
		Help: "Live dashboard sessions",
	}, func() float64 { return float64(sessions.len()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "odap_dataset_cache_entries",
		Help: "Parsed datasets held in the cache",
	}, func() float64 { return float64(cache.Len()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "odap_dataset_cache_hits_total",
		Help: "Uploads served from the dataset cache",
	}, func() float64 { h, _ := cache.Stats(); return float64(h) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "odap_dataset_cache_misses_total",
		Help: "Uploads that had to be parsed",
	}, func() float64 { _, m := cache.Stats(); return float64(m) })
	return m
}

func (m *metrics) observePanel(kind pipeline.PanelKind, status pipeline.Status, took time.Duration) {
	m.panelRenders.WithLabelValues(string(kind), string(status)).Inc()
	m.panelDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

func (m *metrics) observeRequest(method, route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
