package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_provider_requests_total",
		Help: "Total billable provider REST requests by kind",
	}, []string{"kind"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_provider_fail_total",
		Help: "Total provider REST failures by kind",
	}, []string{"kind"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geogw_provider_duration_ms",
		Help:    "Provider REST call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"kind"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_cache_hits_total",
		Help: "Total gateway cache hits by cache name",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_cache_misses_total",
		Help: "Total gateway cache misses by cache name",
	}, []string{"cache"})
	CacheEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogw_cache_evictions_total",
		Help: "Total entries evicted for capacity by cache name",
	}, []string{"cache"})
	SessionRotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_session_rotations_total",
		Help: "Total billing session token rotations",
	})
	GeolocRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_geoloc_requests_total",
		Help: "Total device location attempts reaching the locator",
	})
	GeolocSuppressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_geoloc_suppressed_total",
		Help: "Total device location attempts absorbed by cooldown or in-flight dedup",
	})
	StaleDiscardsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogw_revgeo_stale_discards_total",
		Help: "Total reverse geocode responses discarded as superseded",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderFailTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(SessionRotationsTotal)
	prometheus.MustRegister(GeolocRequestsTotal)
	prometheus.MustRegister(GeolocSuppressedTotal)
	prometheus.MustRegister(StaleDiscardsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
