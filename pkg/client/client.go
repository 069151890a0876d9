// Package client performs JSON calls against one upstream service and turns
// upstream failures into apperr kinds.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/observability"
)

const (
	maxErrorBody = 4 << 10
	maxTextBody  = 64 << 10
)

// Client is a client for a single upstream API.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// Config holds configuration for the client.
type Config struct {
	// Name identifies the upstream in errors, logs and metrics.
	Name    string
	BaseURL string
	Timeout time.Duration
}

// New creates a new Client. metrics may be nil.
func New(cfg Config, tokens TokenSource, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens:  tokens,
		logger:  logger.With(zap.String("upstream", cfg.Name)),
		metrics: metrics,
		tracer:  otel.Tracer("github.com/dhawalhost/manageusers/pkg/client"),
	}
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Get decodes the response of a GET into out. An empty 2xx body is reported
// as NotFound so lookups can treat it as absent.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out when non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out when non-nil.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

// Found folds a lookup error: NotFound becomes (false, nil).
func Found(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case apperr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// doRequest helper to perform authenticated requests.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+c.name, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/plain")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(c.name, method, "error", time.Since(start))
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.logger.Warn("upstream call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperr.Unavailable(c.name, 0, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(c.name, method, strconv.Itoa(resp.StatusCode), time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(invalidator); ok {
				inv.invalidate()
			}
		}
		return c.statusError(resp.StatusCode, method, path, respBody)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		if out != nil && method == http.MethodGet {
			return apperr.NotFound("%s returned no content for %s", c.name, path)
		}
		return nil
	}
	if text, ok := out.(*string); ok {
		return c.decodeText(resp, method, path, text)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) && method == http.MethodGet {
			return apperr.NotFound("%s returned no content for %s", c.name, path)
		}
		return apperr.Unavailable(c.name, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeText reads a plain string response. Endpoints returning a bare string
// answer either text/plain or a JSON string literal; both are accepted.
func (c *Client) decodeText(resp *http.Response, method, path string, out *string) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBody))
	if err != nil {
		return apperr.Unavailable(c.name, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	text := strings.TrimSpace(string(data))
	if text == "" && method == http.MethodGet {
		return apperr.NotFound("%s returned no content for %s", c.name, path)
	}
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			return apperr.Unavailable(c.name, resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	*out = text
	return nil
}

// upstreamError is the error body returned by the upstream APIs.
type upstreamError struct {
	Status           int    `json:"status"`
	ErrorCode        any    `json:"errorCode"`
	UserMessage      string `json:"userMessage"`
	DeveloperMessage string `json:"developerMessage"`
	Field            string `json:"field"`
}

func (c *Client) statusError(status int, method, path string, body []byte) error {
	var ue upstreamError
	_ = json.Unmarshal(body, &ue)
	msg := ue.UserMessage
	if msg == "" {
		msg = ue.DeveloperMessage
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	var e *apperr.Error
	switch {
	case status == http.StatusNotFound:
		e = apperr.NotFound("%s %s not found", c.name, path)
	case status == http.StatusConflict:
		e = apperr.Conflict(ue.Field, msg)
	case status == http.StatusBadRequest:
		e = apperr.Validation(ue.Field, msg)
	case status == http.StatusUnauthorized:
		e = apperr.Unauthorized(msg)
	case status == http.StatusForbidden:
		e = apperr.Forbidden(msg)
	default:
		c.logger.Warn("upstream error response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
		return apperr.Unavailable(c.name, status, fmt.Errorf("%s %s: %s", method, path, msg))
	}
	e.Upstream = c.name
	e.Status = status
	return e
}
