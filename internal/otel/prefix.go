package otel

// Metric name prefixes, one per component.
const (
	PrefixAPI       = "api"
	PrefixAuth      = "auth"
	PrefixInstances = "instances"
	PrefixRoom      = "room"
)
