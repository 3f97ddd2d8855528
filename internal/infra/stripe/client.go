// Package stripe provides a client for the payment processor's REST
// API. It covers only the surface the onboarding flow touches:
// connected accounts, account links, external bank accounts, and
// payment intents. Requests are form-encoded, responses JSON, and
// errors are decoded into the service's tagged error types.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/resilience"
)

var tracer = otel.Tracer("stripe")

// Client wraps HTTP calls to the Stripe API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a Stripe API client.
func NewClient(httpClient *http.Client, baseURL, secretKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretKey:  secretKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// apiError is Stripe's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do executes one API call and decodes the response into out (if
// non-nil). Errors come back already classified; 4xx responses are
// marked permanent so the retry layer gives up immediately.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	return c.doWithIdempotencyKey(ctx, method, path, form, "", out)
}

// doWithIdempotencyKey is do with an Idempotency-Key header, so a
// retried mutation is deduplicated on the processor's side.
func (c *Client) doWithIdempotencyKey(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	endpoint := fmt.Sprintf("%s%s", c.baseURL, path)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("stripe: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &domain.ErrNetwork{Service: "stripe", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ErrNetwork{Service: "stripe", Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return resilience.Permanent(fmt.Errorf("stripe: failed to decode %s response: %w", path, err))
		}
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(respBody, &apiErr)

	c.logger.Warn("stripe: non-2xx response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("code", apiErr.Error.Code),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resilience.Permanent(&domain.ErrUnauthorized{Message: apiErr.Error.Message})
	case resp.StatusCode == http.StatusTooManyRequests:
		// Retryable: rate limits clear on their own.
		return &domain.ErrStripe{Code: "rate_limit", Message: apiErr.Error.Message}
	case resp.StatusCode >= 500:
		return &domain.ErrStripe{Code: apiErr.Error.Code, Message: apiErr.Error.Message}
	default:
		return resilience.Permanent(&domain.ErrStripe{Code: apiErr.Error.Code, Message: apiErr.Error.Message})
	}
}

// execute runs fn behind the circuit breaker and retry policy.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "stripe"}
		}
		return err
	}
	return nil
}
