package llm

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proassist",
			Subsystem: "llm",
			Name:      "loads_total",
			Help:      "Total number of model load attempts by outcome",
		},
		[]string{"outcome"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "proassist",
			Subsystem: "llm",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proassist",
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Total number of generation calls by outcome",
		},
		[]string{"outcome"},
	)

	tokensGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "proassist",
			Subsystem: "llm",
			Name:      "tokens_generated_total",
			Help:      "Total number of tokens produced across all generations",
		},
	)

	generationTPS = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Namespace:  "proassist",
			Subsystem:  "llm",
			Name:       "generation_tps",
			Help:       "Average tokens per second per completed generation",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, generationsTotal, tokensGenerated, generationTPS)
}
