package trackmyrvu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
	"github.com/trackmyrvu/rvutracker/pkg/retry"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// HTTPClient talks to the Track My RVU backend with bearer-token auth.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     providers.TokenSource
	retry      retry.Config
	metrics    *observability.Metrics
	timeout    time.Duration
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// *http.Client, whichever order the options come in.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

// WithRetry sets the retry policy for idempotent reads
func WithRetry(cfg retry.Config) Option {
	return func(c *HTTPClient) { c.retry = cfg }
}

// WithMetrics records request counts and durations
func WithMetrics(m *observability.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewClient creates a backend client rooted at baseURL (e.g. https://www.trackmyrvu.com/api)
func NewClient(baseURL string, tokens providers.TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		retry:  retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.retry.Retryable = apperrors.IsTransient
	return c
}

type request struct {
	method   string
	path     string
	resource string
	body     interface{}
	out      interface{}
	// okStatus lists non-2xx statuses treated as success
	okStatus []int
}

func (c *HTTPClient) do(ctx context.Context, req request) error {
	ctx, span := observability.StartSpan(ctx, "trackmyrvu."+req.resource)
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.path),
	)

	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return apperrors.NewUnauthorizedError(fmt.Sprintf("no session token: %v", err))
		}
		token = t
	}
	if token == "" {
		return apperrors.NewUnauthorizedError("not authenticated, please sign in")
	}

	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return apperrors.NewInternalError("failed to encode request body", err)
		}
	}

	policy := retry.NoRetry()
	if req.method == http.MethodGet {
		policy = c.retry
	}

	err := retry.DoWithLog(ctx, policy, func(ctx context.Context) error {
		return c.attempt(ctx, req, token, payload)
	}, func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("resource", req.resource).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("Backend request failed, retrying")
	})
	observability.RecordError(span, err)
	return err
}

func (c *HTTPClient) attempt(ctx context.Context, req request, token string, payload []byte) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observability.RecordGatewayMetric(ctx, c.metrics, req.method, req.resource, 0, time.Since(start))
		return apperrors.NewNetworkError(fmt.Sprintf("%s %s failed", req.method, req.path), err)
	}
	defer resp.Body.Close()
	observability.RecordGatewayMetric(ctx, c.metrics, req.method, req.resource, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewAuthExpiredError("session expired, please sign in again")
	}

	if !isSuccess(resp.StatusCode, req.okStatus) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewServerError(resp.StatusCode, errorMessage(data))
	}

	if req.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError("failed to read response body", err)
	}
	if err := json.Unmarshal(data, req.out); err != nil {
		observability.LoggerFromContext(ctx).Debug().
			Err(err).
			Str("resource", req.resource).
			Str("body", truncate(string(data), 500)).
			Msg("Unable to decode backend response")
		return apperrors.NewDecodingError("unable to parse server response", err)
	}
	return nil
}

func isSuccess(status int, extra []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range extra {
		if s == status {
			return true
		}
	}
	return false
}

// errorMessage extracts {"error": "..."} from a failed response body.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
