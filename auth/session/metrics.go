package session

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/bedrud-client/internal/otel"
)

var (
	logins    metric.Int64Counter
	refreshes metric.Int64Counter
	logouts   metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("bedrud.auth", intotel.PrefixAuth)

	f.Int64Counter(&logins, "logins",
		metric.WithDescription("Login attempts by method and outcome"))

	f.Int64Counter(&refreshes, "refreshes",
		metric.WithDescription("Access token refreshes by outcome"))

	f.Int64Counter(&logouts, "logouts",
		metric.WithDescription("Sessions cleared"))
}
