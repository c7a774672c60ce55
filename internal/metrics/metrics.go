package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupcart_run_transitions_total",
		Help: "Run state transitions applied, by target state.",
	}, []string{"to"})

	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupcart_api_errors_total",
		Help: "Structured API errors returned, by code.",
	}, []string{"code"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "groupcart_ws_connections",
		Help: "Open run WebSocket connections.",
	})
)

// Serve exposes /metrics on its own port, detached from the API app.
func Serve(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(":"+port, mux)
}
