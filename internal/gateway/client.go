package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

const (
	defaultBaseURL            = "http://localhost:5000/api"
	defaultAppointmentBaseURL = "http://localhost:8001/api"
)

// Client wraps the REST calls to the clinic's patient, appointment, medicine, order,
// delivery-info and payment services. Calls are never retried.
type Client struct {
	httpClient         *http.Client
	baseURL            string
	appointmentBaseURL string
	logger             *logging.Logger
	tracer             trace.Tracer
	metrics            *metrics.OrderFlowMetrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a client-wide timeout. Zero keeps the http.Client default of none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAppointmentBaseURL points appointment calls at their own service.
func WithAppointmentBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.appointmentBaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

func WithMetrics(m *metrics.OrderFlowMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a gateway client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient:         &http.Client{},
		baseURL:            strings.TrimRight(baseURL, "/"),
		appointmentBaseURL: defaultAppointmentBaseURL,
		logger:             logger,
		tracer:             otel.Tracer("clinic.internal.gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call describes one remote request.
type call struct {
	op       string
	fallback string
	method   string
	base     string
	path     string
	query    url.Values
	body     any
	out      any
	// ok lists the success statuses; a response with any other status is an error.
	ok []int
}

func (c *Client) do(ctx context.Context, cl call) (int, error) {
	ctx, span := c.tracer.Start(ctx, "gateway."+cl.op, trace.WithAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("http.route", cl.path),
	))
	defer span.End()

	start := time.Now()
	status, err := c.roundTrip(ctx, cl)
	c.metrics.ObserveGateway(cl.op, status, time.Since(start).Seconds())

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, cl call) (int, error) {
	base := cl.base
	if base == "" {
		base = c.baseURL
	}
	endpoint := base + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var bodyReader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	creds := credentialsFrom(ctx)
	if creds.Authorization != "" {
		req.Header.Set("Authorization", creds.Authorization)
	}
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", "op", cl.op, "path", cl.path, "error", err)
		return 0, &APIError{Op: cl.op, Message: cl.fallback, cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &APIError{Op: cl.op, Status: resp.StatusCode, Message: cl.fallback, cause: err}
	}

	if !accepts(cl.ok, resp.StatusCode) {
		apiErr := &APIError{
			Op:      cl.op,
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, cl.fallback),
		}
		if isAuthStatus(resp.StatusCode) {
			apiErr.cause = ErrUnauthorized
			AuthSignalFrom(ctx).Raise()
		}
		c.logger.Warn("gateway non-success response", "op", cl.op, "status", resp.StatusCode, "path", cl.path, "error", apiErr.Message)
		return resp.StatusCode, apiErr
	}

	if len(bytes.TrimSpace(respBody)) == 0 || cl.out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return resp.StatusCode, &APIError{Op: cl.op, Status: resp.StatusCode, Message: cl.fallback, cause: fmt.Errorf("decode response: %w", err)}
	}
	return resp.StatusCode, nil
}

func accepts(ok []int, status int) bool {
	if len(ok) == 0 {
		return status >= 200 && status <= 299
	}
	for _, s := range ok {
		if s == status {
			return true
		}
	}
	return false
}

// errorMessage prefers the backend's {"error": "..."} text.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return fallback
}
