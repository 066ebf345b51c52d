package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	"github.com/wms-platform/warehouse-state/pkg/resilience"
	"github.com/wms-platform/warehouse-state/pkg/tracing"
)

// StatusError is a non-2xx response from the order API
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("order API %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("order API %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Metrics receives order API call measurements. *metrics.Metrics implements it.
type Metrics interface {
	RecordOrderAPICall(operation string, success bool, duration time.Duration)
}

// Config configures the order API client
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Retry    *resilience.RetryConfig
	Breaker  *resilience.CircuitBreakerConfig
	Observer resilience.StateObserver
}

// DefaultConfig returns client defaults for baseURL
func DefaultConfig(baseURL string) *Config {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = isRetryable
	return &Config{
		BaseURL: baseURL,
		Timeout: 20 * time.Second,
		Retry:   retry,
		Breaker: resilience.DefaultCircuitBreakerConfig("order-api"),
	}
}

// Client talks to the external order API. It implements domain.OrderGateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	metrics    Metrics
	tracer     trace.Tracer
}

// NewClient creates an order API client. metrics may be nil.
func NewClient(config *Config, logger *logging.Logger, metrics Metrics) *Client {
	if config.Retry == nil {
		config.Retry = DefaultConfig(config.BaseURL).Retry
	}
	if config.Breaker == nil {
		config.Breaker = resilience.DefaultCircuitBreakerConfig("order-api")
	}

	log := logger.WithComponent("order-api-client")
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retry:   config.Retry,
		breaker: resilience.NewCircuitBreaker(config.Breaker, log.Logger, config.Observer),
		logger:  log,
		metrics: metrics,
		tracer:  otel.Tracer("orderapi"),
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrStatusUpdateRejected) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	// transport errors
	return true
}

// ListOrders fetches every order with its lines
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return tracing.TracedOperation(ctx, c.tracer, "orderapi.ListOrders", func(ctx context.Context) ([]domain.Order, error) {
		start := time.Now()
		orders, err := resilience.RetryWithResult(ctx, c.retry, func() ([]domain.Order, error) {
			return resilience.Execute(ctx, c.breaker, c.listOrders)
		})
		c.record(ctx, "list_orders", err, time.Since(start))
		return orders, err
	})
}

func (c *Client) listOrders(ctx context.Context) ([]domain.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeOrders(body)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(dtos))
	for _, dto := range dtos {
		order := dto.toDomain()
		if !order.Type.IsValid() || !order.Status.IsValid() {
			c.logger.Warn("Order API returned unexpected order fields",
				"orderId", order.OrderID,
				"type", string(order.Type),
				"status", string(order.Status),
			)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateOrderStatus asks the order API to move orderID to status
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := tracing.TracedOperation(ctx, c.tracer, "orderapi.UpdateOrderStatus", func(ctx context.Context) (struct{}, error) {
		start := time.Now()
		err := resilience.Retry(ctx, c.retry, func() error {
			_, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.updateOrderStatus(ctx, orderID, status)
			})
			return err
		})
		c.record(ctx, "update_status", err, time.Since(start))
		return struct{}{}, err
	}, attribute.String("wms.order.id", orderID), attribute.String("wms.order.status.to", string(status)))
	return err
}

func (c *Client) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	payload, err := json.Marshal(statusUpdateRequest{Status: string(status)})
	if err != nil {
		return fmt.Errorf("failed to encode status update: %w", err)
	}

	path := fmt.Sprintf("/orders/%s/status", url.PathEscape(orderID))
	_, err = c.do(ctx, http.MethodPut, path, payload)

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		case statusErr.StatusCode >= 400 && !statusErr.Retryable():
			return fmt.Errorf("%w: %w", domain.ErrStatusUpdateRejected, statusErr)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := ctx.Value(logging.CorrelationIDKey).(string); ok && id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.HTTPRequest(ctx, method, req.URL.String(), 0, time.Since(start))
		return nil, fmt.Errorf("order API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.HTTPRequest(ctx, method, req.URL.String(), resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read order API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}
	return data, nil
}

func (c *Client) record(ctx context.Context, operation string, err error, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordOrderAPICall(operation, err == nil, duration)
	}
	c.logger.Performance(ctx, "orderapi."+operation, duration, err == nil, nil)
}
