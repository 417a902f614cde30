package manager

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/bedrud-client/internal/otel"
)

var (
	connects     metric.Int64Counter
	reconnects   metric.Int64Counter
	chatSent     metric.Int64Counter
	chatReceived metric.Int64Counter
	dataDropped  metric.Int64Counter
	participants metric.Int64UpDownCounter
)

func init() {
	f := intotel.NewFactory("bedrud.room", intotel.PrefixRoom)

	f.Int64Counter(&connects, "connects",
		metric.WithDescription("Room connect attempts by outcome"))

	f.Int64Counter(&reconnects, "reconnects",
		metric.WithDescription("Engine reconnect cycles"))

	f.Int64Counter(&chatSent, "chat.sent",
		metric.WithDescription("Local chat messages by publish outcome"))

	f.Int64Counter(&chatReceived, "chat.received",
		metric.WithDescription("Remote chat messages appended"))

	f.Int64Counter(&dataDropped, "data.dropped",
		metric.WithDescription("Inbound data payloads that were not chat"))

	f.Int64UpDownCounter(&participants, "participants",
		metric.WithDescription("Remote participants in the current room"))
}
