package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(analyticsWindow) }

var analyticsWindow = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "analytics_window_total",
		Help: "Interaction totals over the configured stats window, refreshed by the digest job.",
	},
	[]string{"metric"}, // users|searches|zero_result_searches|links|viral
)

func SetAnalyticsWindow(users, searches, zeroResult, links, viral int) {
	analyticsWindow.WithLabelValues("users").Set(float64(users))
	analyticsWindow.WithLabelValues("searches").Set(float64(searches))
	analyticsWindow.WithLabelValues("zero_result_searches").Set(float64(zeroResult))
	analyticsWindow.WithLabelValues("links").Set(float64(links))
	analyticsWindow.WithLabelValues("viral").Set(float64(viral))
}
