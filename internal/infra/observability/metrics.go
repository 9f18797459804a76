package observability

import (
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the chat engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	turnDuration   *prometheus.HistogramVec
	turnsTotal     *prometheus.CounterVec
	cannedHits     *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec
	llmFallbacks   prometheus.Counter
	externalErrors *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tirebot_turn_duration_seconds",
				Help:    "Duration of conversation turns.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_turns_total",
				Help: "Total conversation turns by resolved intent.",
			},
			[]string{"intent"},
		),
		cannedHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_canned_hits_total",
				Help: "Turns answered by a canned response, by category.",
			},
			[]string{"category"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_llm_calls_total",
				Help: "Generative backend calls by purpose.",
			},
			[]string{"purpose"},
		),
		llmFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tirebot_llm_fallbacks_total",
				Help: "Turns where the LLM failed and the rule result was used.",
			},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tirebot_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordTurnDuration records the wall time of one full turn.
func (m *Metrics) RecordTurnDuration(d time.Duration) {
	m.turnDuration.WithLabelValues("turn").Observe(d.Seconds())
}

// IncrTurn increments the turn counter for a resolved intent.
func (m *Metrics) IncrTurn(intent string) {
	if intent == "" {
		intent = "unknown"
	}
	m.turnsTotal.WithLabelValues(intent).Inc()
}

// IncrCannedHit increments the canned-response counter for a category.
func (m *Metrics) IncrCannedHit(category string) {
	m.cannedHits.WithLabelValues(category).Inc()
}

// IncrLLMCall increments the generative call counter.
func (m *Metrics) IncrLLMCall(purpose string) {
	m.llmCalls.WithLabelValues(purpose).Inc()
}

// IncrLLMFallback increments the rule-fallback counter.
func (m *Metrics) IncrLLMFallback() {
	m.llmFallbacks.Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetChatSnapshot returns a snapshot of chat metrics suitable for the
// GET /v1/metrics/chat endpoint.
func (m *Metrics) GetChatSnapshot() *domain.ChatMetrics {
	// Prometheus counters expose cumulative values; sum over the labels
	// we know about.
	totalTurns := sumCounterVec(m.turnsTotal,
		"canned",
		string(domain.IntentUnknown),
		string(domain.IntentDealerSearchByLocation),
		string(domain.IntentDealerSearchByCityDistrict),
		string(domain.IntentTireSearch),
		string(domain.IntentGeneralQuestion),
	)
	cannedHits := getCounterValue(m.turnsTotal, "canned")
	llmCalls := sumCounterVec(m.llmCalls, "intent", "general", "classify")
	llmFallbacks := counterValue(m.llmFallbacks)
	externalErrors := sumCounterVec(m.externalErrors,
		"llm", "dealer-search", "tire-search", "tire-validate")

	cannedRate := float64(0)
	fallbackRate := float64(0)
	errorRate := float64(0)
	if totalTurns > 0 {
		cannedRate = cannedHits / totalTurns
		errorRate = externalErrors / totalTurns
	}
	if llmCalls > 0 {
		fallbackRate = llmFallbacks / llmCalls
	}

	return &domain.ChatMetrics{
		TotalTurns:      int64(totalTurns),
		CannedHits:      int64(cannedHits),
		LLMCalls:        int64(llmCalls),
		LLMFallbacks:    int64(llmFallbacks),
		ExternalErrors:  int64(externalErrors),
		CannedHitRate:   cannedRate,
		LLMFallbackRate: fallbackRate,
		ErrorRate:       errorRate,
		Period:          "all_time",
	}
}

func sumCounterVec(cv *prometheus.CounterVec, labels ...string) float64 {
	total := float64(0)
	for _, l := range labels {
		total += getCounterValue(cv, l)
	}
	return total
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
