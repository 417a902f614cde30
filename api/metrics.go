package api

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/bedrud-client/internal/otel"
)

var (
	apiRequests  metric.Int64Counter
	apiLatency   metric.Float64Histogram
	healthProbes metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("bedrud.api", intotel.PrefixAPI)

	f.Int64Counter(&apiRequests, "requests",
		metric.WithDescription("REST requests by route and outcome"))

	f.Float64Histogram(&apiLatency, "request.duration",
		metric.WithDescription("REST request latency including token refresh"),
		metric.WithUnit("s"))

	f.Int64Counter(&healthProbes, "health.probes",
		metric.WithDescription("Instance health probes by outcome"))
}
