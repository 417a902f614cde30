package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/httputil"
	"github.com/imtaco/bedrud-client/internal/log"
	intotel "github.com/imtaco/bedrud-client/internal/otel"
)

var tracer = intotel.Tracer("bedrud.api")

// StatusError is a non-2xx reply. It is always wrapped in an *errors.Error
// carrying ErrAuth for 401/403 and ErrNetwork otherwise.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "http " + http.StatusText(e.Status)
	}
	return "http " + http.StatusText(e.Status) + ": " + e.Message
}

// StatusCode returns the HTTP status behind err, or 0 when err is not a
// reply from the server.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Client talks to the REST API of one instance.
type Client struct {
	baseURL string
	rc      *resty.Client
	logger  *log.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// New binds a client to apiBaseURL, e.g. https://meet.example.com/api.
func New(apiBaseURL string, cfg *httputil.ClientConfig, logger *log.Logger) *Client {
	if logger == nil {
		panic("logger is nil")
	}
	if cfg == nil {
		cfg = httputil.DefaultClientConfig()
	}
	baseURL := strings.TrimRight(apiBaseURL, "/")
	rc := resty.NewWithClient(&http.Client{Transport: httputil.NewTransport(cfg)}).
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		baseURL: baseURL,
		rc:      rc,
		logger:  logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource attaches credentials. Until set, every request goes out
// anonymous.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

type call struct {
	method string
	path   string
	body   any
	out    any
	// authed requests carry the bearer token and get one refresh retry on 401
	authed bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx, span := intotel.StartSpan(ctx, tracer, cl.method+" "+cl.path,
		attribute.String("http.method", cl.method),
		attribute.String("http.route", cl.path))
	defer span.End()

	start := time.Now()
	err := c.doAuthed(ctx, cl)
	intotel.RecordError(span, err)

	attrs := metric.WithAttributes(
		attribute.String("route", cl.path),
		attribute.Int("status", StatusCode(err)),
		attribute.String("code", string(errors.CodeOf(err))),
	)
	apiRequests.Add(ctx, 1, attrs)
	apiLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	return err
}

func (c *Client) doAuthed(ctx context.Context, cl call) error {
	ts := c.tokenSource()
	if !cl.authed || ts == nil {
		return c.send(ctx, cl, "")
	}

	err := c.send(ctx, cl, ts.AccessToken())
	if StatusCode(err) != http.StatusUnauthorized {
		return err
	}

	c.logger.Debug("access token rejected, refreshing", log.String("path", cl.path))
	token, rerr := ts.RefreshAccessToken(ctx)
	if rerr != nil {
		return errors.Wrap(errors.ErrAuth, rerr, "refresh after 401")
	}

	err = c.send(ctx, cl, token)
	if StatusCode(err) == http.StatusUnauthorized {
		c.logger.Warn("refreshed token rejected, logging out", log.String("path", cl.path))
		ts.Logout(ctx)
	}
	return err
}

func (c *Client) send(ctx context.Context, cl call, token string) error {
	req := c.rc.R().
		SetContext(ctx).
		SetError(&errorBody{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if cl.out != nil {
		req.SetResult(cl.out)
	}

	c.logger.Debug("api req", log.String("method", cl.method), log.String("path", cl.path))
	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, err, "%s %s", cl.method, cl.path)
	}
	c.logger.Debug("api resp", log.String("path", cl.path), log.Int("status", resp.StatusCode()))

	if resp.IsSuccess() {
		return nil
	}

	se := &StatusError{Status: resp.StatusCode()}
	if eb, ok := resp.Error().(*errorBody); ok && eb != nil {
		se.Message = eb.Error
		if se.Message == "" {
			se.Message = eb.Message
		}
	}
	code := errors.ErrNetwork
	if se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden {
		code = errors.ErrAuth
	}
	return errors.Wrapf(code, se, "%s %s", cl.method, cl.path)
}
