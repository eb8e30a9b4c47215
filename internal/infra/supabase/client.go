// Package supabase provides a TransactionStore backed by Supabase
// (PostgREST). Every call goes through a bulkhead, retry with backoff and a
// circuit breaker.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase"

// Client wraps HTTP calls to the Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	table          string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client writing to table.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey, table string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		table:          table,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(maxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// execute runs fn under the bulkhead, retries it with backoff and counts the
// outcome on the circuit breaker. Transport failures come back as
// *domain.ErrExternalService or *domain.ErrCircuitOpen.
func (c *Client) execute(ctx context.Context, op string, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("supabase: circuit open", zap.String("op", op))
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + op, Err: err}
}

// do executes an authenticated request against PostgREST and returns the
// response body. Non-2xx statuses are errors.
func (c *Client) do(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		err := fmt.Errorf("supabase %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
		if isClientError(resp.StatusCode) {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return respBody, nil
}

// Ping issues a cheap read used by the health check.
func (c *Client) Ping(ctx context.Context) error {
	return c.execute(ctx, "ping", func() error {
		_, err := c.do(ctx, http.MethodGet, c.table+"?select=id&limit=1", nil, "")
		return err
	})
}

// isClientError reports 4xx statuses that a retry cannot fix.
func isClientError(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
