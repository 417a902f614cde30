package manager

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/bedrud-client/internal/otel"
)

var (
	rebuilds       metric.Int64Counter
	staleDiscarded metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("bedrud.instances", intotel.PrefixInstances)

	f.Int64Counter(&rebuilds, "rebuilds",
		metric.WithDescription("Dependency rebuilds after an active instance change"))

	f.Int64Counter(&staleDiscarded, "stale",
		metric.WithDescription("Completions dropped because the active instance changed"))
}
