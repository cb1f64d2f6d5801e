package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_completions_total",
			Help: "Total number of completion calls by final status",
		},
		[]string{"provider", "model", "status"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlab_completion_duration_seconds",
			Help:    "End-to-end completion call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_attempts_total",
			Help: "Total number of network attempts including retries",
		},
		[]string{"provider", "model"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_retries_total",
			Help: "Total number of retried attempts by error class",
		},
		[]string{"provider", "error_type"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_tokens_total",
			Help: "Total number of tokens recorded in the ledger",
		},
		[]string{"provider", "model", "type"},
	)

	CostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_cost_usd_total",
			Help: "Total accounted cost in USD",
		},
		[]string{"provider", "model"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_cache_hits_total",
			Help: "Total number of completion cache hits",
		},
		[]string{"provider"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_cache_misses_total",
			Help: "Total number of completion cache misses",
		},
		[]string{"provider"},
	)

	PaperSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlab_paper_searches_total",
			Help: "Total number of paper index searches",
		},
		[]string{"status"},
	)
)

func RecordCompletion(provider, model, status string, durationSec float64) {
	CompletionsTotal.WithLabelValues(provider, model, status).Inc()
	CompletionDuration.WithLabelValues(provider, model).Observe(durationSec)
}

func RecordAttempt(provider, model string) {
	AttemptsTotal.WithLabelValues(provider, model).Inc()
}

func RecordRetry(provider, errorType string) {
	RetriesTotal.WithLabelValues(provider, errorType).Inc()
}

func RecordTokens(provider, model string, inputTokens, outputTokens int) {
	TokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	TokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

func RecordCost(provider, model string, costUSD float64) {
	CostTotal.WithLabelValues(provider, model).Add(costUSD)
}

func RecordCacheHit(provider string) {
	CacheHits.WithLabelValues(provider).Inc()
}

func RecordCacheMiss(provider string) {
	CacheMisses.WithLabelValues(provider).Inc()
}

func RecordPaperSearch(status string) {
	PaperSearchesTotal.WithLabelValues(status).Inc()
}
