package metrics

import (
	"net/http"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsPath is the path harness metrics are served on.
const MetricsPath = "/metrics"

// NewPrometheusService creates a service exposing harness collectors (setup,
// transaction, query and funding metrics) registered in the default
// registry.
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	return newHTTPService("Prometheus", cfg, mux, log)
}
