// Package tradier implements the HTTP client for the Tradier brokerage API:
// account data, quotes, option chain data and order submission. Order
// payloads themselves are built by the order package; this package only
// dispatches them and normalizes the responses.
package tradier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/thammo4/uvatradier/tabular"
)

const (
	liveBaseURL      = "https://api.tradier.com"
	sandboxBaseURL   = "https://sandbox.tradier.com"
	defaultStreamURL = "wss://ws.tradier.com"

	defaultTimeout = 10 * time.Second
)

// Config carries the account credentials and environment selection for one
// client. It is injected at construction; nothing reads ambient globals.
type Config struct {
	AccountID string
	Token     string

	// LiveTrade selects the live API host instead of the sandbox.
	LiveTrade bool

	// BaseURL and StreamURL override the hosts derived from LiveTrade.
	// Mostly useful for tests.
	BaseURL   string
	StreamURL string

	// Timeout applies to the default HTTP transport only.
	Timeout time.Duration
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.LiveTrade {
		return liveBaseURL
	}
	return sandboxBaseURL
}

func (c Config) streamURL() string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	return defaultStreamURL
}

// ConfigFromEnv loads credentials from the environment, reading a .env file
// first when one is present. Recognized variables: TRADIER_ACCOUNT_ID,
// TRADIER_TOKEN, TRADIER_LIVE.
func ConfigFromEnv() (Config, error) {
	// A missing .env file is fine; the variables may be set directly.
	_ = godotenv.Overload()

	cfg := Config{
		AccountID: os.Getenv("TRADIER_ACCOUNT_ID"),
		Token:     os.Getenv("TRADIER_TOKEN"),
		LiveTrade: strings.EqualFold(os.Getenv("TRADIER_LIVE"), "true"),
	}
	if cfg.AccountID == "" {
		return Config{}, errors.New("TRADIER_ACCOUNT_ID is not set")
	}
	if cfg.Token == "" {
		return Config{}, errors.New("TRADIER_TOKEN is not set")
	}
	return cfg, nil
}

// Doer is the transport contract. Retry, backoff and instrumentation
// policies belong to the Doer supplied by the caller, never to this client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a thin, stateless wrapper over the REST endpoints. It is safe
// for concurrent use.
type Client struct {
	cfg    Config
	http   Doer
	logger *zap.Logger
}

// Option adjusts a Client under construction.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger attaches a logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("tradier: account id is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("tradier: auth token is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccountID returns the configured account id.
func (c *Client) AccountID() string {
	return c.cfg.AccountID
}

// TransportError reports a network failure or a non-2xx response from the
// broker. It is always surfaced to the caller, never swallowed.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tradier transport: %v", e.Err)
	}
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("tradier transport: HTTP %d: %s", e.StatusCode, body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// send issues one request and returns the raw JSON body. This is the narrow
// boundary every operation goes through: method, path, query params, form
// body. It performs no retries.
func (c *Client) send(ctx context.Context, method, path string, query, body url.Values) (json.RawMessage, error) {
	endpoint := c.cfg.baseURL() + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(body.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("build request %s %s: %w", method, path, err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if reader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.Debug("dispatching request",
		zap.String("method", method),
		zap.String("path", path))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: res.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode))
		return nil, &TransportError{StatusCode: res.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// getRows issues a GET and normalizes the enveloped collection.
func (c *Client) getRows(ctx context.Context, path string, query url.Values, collectionKey, recordKey string) ([]tabular.Row, error) {
	raw, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return tabular.NormalizeBytes(raw, collectionKey, recordKey)
}

// getRow issues a GET for an endpoint whose collection is a single object.
func (c *Client) getRow(ctx context.Context, path string, query url.Values, collectionKey, recordKey string) (tabular.Row, error) {
	rows, err := c.getRows(ctx, path, query, collectionKey, recordKey)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &tabular.UnexpectedShapeError{Path: collectionKey, Detail: "want one record, got none"}
	}
	return rows[0], nil
}

func (c *Client) accountPath(suffix string) string {
	return fmt.Sprintf("v1/accounts/%s/%s", c.cfg.AccountID, suffix)
}
