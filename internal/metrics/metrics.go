package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_requests_total",
		Help: "Total number of /api/lookup requests",
	})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nodeapi_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	LookupStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeapi_lookup_status_total",
		Help: "Lookup results by terminal status code",
	}, []string{"status"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeapi_cache_hits_total",
		Help: "Cache hits by namespace and layer",
	}, []string{"namespace", "layer"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeapi_cache_misses_total",
		Help: "Cache misses (expired entries included) by namespace",
	}, []string{"namespace"})
	ProbeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_probe_requests_total",
		Help: "Total gateway status document fetch attempts",
	})
	ProbeSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_probe_success_total",
		Help: "Total successful gateway probes",
	})
	ProbeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_probe_fail_total",
		Help: "Total failed gateway probes (timeout, refused, bad payload)",
	})
	ProbeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nodeapi_probe_duration_ms",
		Help:    "Gateway probe duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_geocode_requests_total",
		Help: "Total reverse geocode provider requests",
	})
	GeocodeSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_geocode_success_total",
		Help: "Total reverse geocode provider successes",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodeapi_geocode_fail_total",
		Help: "Total reverse geocode provider failures",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nodeapi_geocode_duration_ms",
		Help:    "Reverse geocode provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(LookupStatusTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ProbeRequestsTotal)
	prometheus.MustRegister(ProbeSuccessTotal)
	prometheus.MustRegister(ProbeFailTotal)
	prometheus.MustRegister(ProbeDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeSuccessTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
