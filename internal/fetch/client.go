package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// NetworkError covers transport failures and non-2xx responses alike.
// Callers decide whether to retry; the client never does.
type NetworkError struct {
	Code    string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config holds HTTP client configuration.
type Config struct {
	Headers map[string]string
	Cookies map[string]string
	Timeout time.Duration
}

// Client issues single HTTP requests with the configured headers,
// cookies, throttle and proxy pool applied.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cookies    map[string]string
	throttle   *IntervalThrottle
	logger     *slog.Logger
}

func NewClient(cfg Config, throttle *IntervalThrottle, proxies *ProxyRotator, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(*http.Request) (*url.URL, error) {
		return proxies.Pick(), nil
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		headers:  cfg.Headers,
		cookies:  cfg.Cookies,
		throttle: throttle,
		logger:   logger,
	}
}

// Fetch performs one request and returns the response body. The payload
// is JSON-encoded for POST, PUT and PATCH and ignored otherwise.
func (c *Client) Fetch(ctx context.Context, rawURL, method string, payload any) ([]byte, error) {
	if c.throttle != nil {
		c.throttle.WaitTurn()
	}

	var body io.Reader
	if payload != nil && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch) {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{
			Code:    "NETWORK_ERROR",
			Message: fmt.Sprintf("network error occurred while fetching %s", rawURL),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{
			Code:    "NETWORK_ERROR",
			Message: fmt.Sprintf("read response from %s", rawURL),
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{
			Code:    "NETWORK_ERROR",
			Message: fmt.Sprintf("unexpected status %d while fetching %s", resp.StatusCode, rawURL),
		}
	}

	c.logger.Debug("fetched url", "url", rawURL, "method", method, "status", resp.StatusCode)

	return data, nil
}
