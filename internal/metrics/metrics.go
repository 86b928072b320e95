package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	cacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbot_cache_operations_total",
			Help: "Cache operations by namespace, operation and result",
		},
		[]string{"namespace", "op", "result"},
	)

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbot_account_api_calls_total",
			Help: "Calls to the remote account service by result",
		},
		[]string{"result"},
	)

	remoteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "authbot_account_api_call_duration_seconds",
			Help: "Latency of calls to the remote account service",
		},
	)

	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbot_auth_outcomes_total",
			Help: "Auth flow outcomes",
		},
		[]string{"outcome"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbot_auth_events_published_total",
			Help: "Auth events sent to the events topic by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(cacheOperations)
	prometheus.MustRegister(remoteCalls)
	prometheus.MustRegister(remoteLatency)
	prometheus.MustRegister(outcomes)
	prometheus.MustRegister(events)
}

func CacheOp(namespace, op, result string) {
	cacheOperations.WithLabelValues(namespace, op, result).Inc()
}

func RemoteCall(result string, seconds float64) {
	remoteCalls.WithLabelValues(result).Inc()
	remoteLatency.Observe(seconds)
}

func Outcome(outcome string) {
	outcomes.WithLabelValues(outcome).Inc()
}

func EventPublished(result string) {
	events.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
