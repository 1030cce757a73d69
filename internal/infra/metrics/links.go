package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		inlineQueriesTotal,
		inlineResultsReturned,
		linksGeneratedTotal,
		viralInteractionsTotal,
		analyticsRecordFailuresTotal,
	)
}

var (
	inlineQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inline_queries_total",
			Help: "Inline queries answered, labeled by whether the term was empty and whether anything matched.",
		},
		[]string{"empty_term", "matched"},
	)

	inlineResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inline_results_returned",
			Help:    "Number of merchants returned per inline query.",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	linksGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "links_generated_total",
			Help: "Tracked links composed, labeled by source (inline|callback|command|admin).",
		},
		[]string{"source"},
	)

	viralInteractionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "viral_interactions_total",
			Help: "Viewers who generated their own link from a shared message.",
		},
	)

	analyticsRecordFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_record_failures_total",
			Help: "Best-effort analytics writes that failed or were dropped.",
		},
		[]string{"kind"}, // search|link|viral|user
	)
)

func ObserveInlineQuery(emptyTerm bool, results int) {
	inlineQueriesTotal.WithLabelValues(strconv.FormatBool(emptyTerm), strconv.FormatBool(results > 0)).Inc()
	inlineResultsReturned.Observe(float64(results))
}

func IncLinkGenerated(source string) {
	linksGeneratedTotal.WithLabelValues(norm(source)).Inc()
}

func IncViralInteraction() {
	viralInteractionsTotal.Inc()
}

func IncAnalyticsFailure(kind string) {
	analyticsRecordFailuresTotal.WithLabelValues(norm(kind)).Inc()
}
