package prom

import (
	"net/http"

	st "github.com/cachegate/cachegate/settings"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Starts a HTTP server just for Prometheus - embedding applications usually
// expose the default registry themselves instead.
func StartStandalonePromServer() {
	http.Handle("/metrics", promhttp.Handler())

	st.Logger.Info().Str("addr", st.Settings.MetricsAddr).Msg("launching metrics server")

	err := http.ListenAndServe(st.Settings.MetricsAddr, nil)
	if err != nil {
		st.Logger.Fatal().Err(err).Msg("failed to listen for prometheus metrics")
	}
}
