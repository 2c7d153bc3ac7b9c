package observability

import "github.com/prometheus/client_golang/prometheus"

// Pipeline collectors. HTTP transport metrics live in the middleware package.
var (
	// Lookups counts finished lookups by result: found, not_found or an error class.
	Lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saucebot_lookups_total",
			Help: "Image lookups by result.",
		},
		[]string{"result"},
	)

	// CacheResults counts result cache reads by state (hit, hit_not_found, miss, error).
	CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saucebot_result_cache_total",
			Help: "Result cache reads by state.",
		},
		[]string{"state"},
	)

	// UpstreamLatency observes search API round trips.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saucebot_upstream_duration_seconds",
			Help:    "Search API call latency by outcome.",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"outcome"},
	)

	// Cooldowns counts rejected commands by cooldown scope.
	Cooldowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saucebot_cooldowns_total",
			Help: "Commands rejected by a cooldown, by scope.",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(Lookups, CacheResults, UpstreamLatency, Cooldowns)
}
