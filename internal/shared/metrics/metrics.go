package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rancheye"

var (
	registry = prometheus.NewRegistry()

	tasksStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_started_total",
		Help:      "Total analysis tasks moved to processing",
	})
	tasksCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_completed_total",
		Help:      "Total analysis tasks completed",
	})
	tasksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_failed_total",
		Help:      "Total analysis tasks failed",
	})
	taskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_ms",
		Help:      "Task processing duration in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Batch processing duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	providerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Model calls by provider and outcome",
	}, []string{"provider", "outcome"})
	providerTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_tokens_total",
		Help:      "Tokens consumed by provider",
	}, []string{"provider"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by result",
	}, []string{"result"})
	alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Alert decisions by outcome",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		tasksStarted,
		tasksCompleted,
		tasksFailed,
		taskDuration,
		batchDuration,
		providerCalls,
		providerTokens,
		cacheLookups,
		alerts,
	)
}

// IncTaskStarted increments the started counter.
func IncTaskStarted() {
	tasksStarted.Inc()
}

// IncTaskCompleted increments the completed counter.
func IncTaskCompleted() {
	tasksCompleted.Inc()
}

// IncTaskFailed increments the failed counter.
func IncTaskFailed() {
	tasksFailed.Inc()
}

// ObserveTaskDurationMs records a task duration in milliseconds.
func ObserveTaskDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	taskDuration.Observe(value)
}

// ObserveBatchSeconds records a batch duration in seconds.
func ObserveBatchSeconds(value float64) {
	if value < 0 {
		value = 0
	}
	batchDuration.Observe(value)
}

// IncProviderCall counts a model call. Outcome is ok, error, or cache_hit.
func IncProviderCall(provider, outcome string) {
	providerCalls.WithLabelValues(provider, outcome).Inc()
}

// AddProviderTokens adds consumed tokens for a provider.
func AddProviderTokens(provider string, tokens int) {
	if tokens <= 0 {
		return
	}
	providerTokens.WithLabelValues(provider).Add(float64(tokens))
}

// IncCacheLookup counts a cache lookup as hit or miss.
func IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// IncAlert counts an alert decision (created, suppressed, dry_run, failed).
func IncAlert(outcome string) {
	alerts.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}
