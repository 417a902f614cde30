package api

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imtaco/bedrud-client/internal/httputil"
	"github.com/imtaco/bedrud-client/internal/log"
)

// CheckHealth probes {serverURL}/api/health once, without credentials. Any
// transport failure or non-2xx reply is an error.
func CheckHealth(ctx context.Context, serverURL string, cfg *httputil.ClientConfig, logger *log.Logger) (*HealthResponse, error) {
	c := New(strings.TrimRight(serverURL, "/")+"/api", cfg, logger)

	var out HealthResponse
	err := c.do(ctx, call{method: http.MethodGet, path: "/health", out: &out})
	healthProbes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", err == nil)))
	if err != nil {
		return nil, err
	}
	return &out, nil
}
