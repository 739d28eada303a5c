package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/rd-classifier/internal/common"
)

// Client is a ConfigStore backed by a remote config API.
type Client struct {
	http    *http.Client
	baseURL string
	retry   common.RetryOptions
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetryOptions sets the retry policy for requests.
func WithRetryOptions(opts common.RetryOptions) ClientOption {
	return func(c *Client) { c.retry = opts }
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   common.RemoteRetryOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetConfigs returns every stored config.
func (c *Client) GetConfigs(ctx context.Context) (map[string]json.RawMessage, error) {
	var configs map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, BasePath+"/configs", nil, &configs); err != nil {
		return nil, err
	}
	if configs == nil {
		configs = make(map[string]json.RawMessage)
	}
	return configs, nil
}

// SaveConfig upserts key with value.
func (c *Client) SaveConfig(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode config %q: %w", key, err)
	}
	body, err := json.Marshal(SaveConfigRequest{Key: key, Value: raw})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, BasePath+"/configs", body, nil)
}

// Health checks that the remote API answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	return common.WithRetry(ctx, func() error {
		return c.attempt(ctx, method, path, body, out)
	}, c.retry)
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return common.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// statusError classifies a non-2xx response. Server errors are retried.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimit, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", common.ErrRemoteUnavailable, resp.StatusCode, msg)
	case resp.StatusCode == http.StatusNotFound:
		return common.Permanent(fmt.Errorf("%w: %s", common.ErrNotFound, msg))
	default:
		return common.Permanent(fmt.Errorf("remote config API: status %d: %s", resp.StatusCode, msg))
	}
}
