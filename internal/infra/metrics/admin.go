package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminRequestsTotal) }

var adminRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_requests_total",
		Help: "Admin API requests by chi route pattern and status class.",
	},
	[]string{"route", "status"}, // status: 2xx|4xx|5xx
)

func IncAdminRequest(route, status string) {
	adminRequestsTotal.WithLabelValues(route, norm(status)).Inc()
}
