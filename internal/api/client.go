package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Retry and backoff constants.
const (
	defaultMaxRetries = 5
	baseBackoff       = 1 * time.Second
	maxBackoff        = 60 * time.Second
	backoffFactor     = 2.0
	jitterFraction    = 0.25
	defaultUserAgent  = "ledger-go/0.1"

	requestIDHeader = "X-Request-ID"
)

// TokenSource provides the bearer credential attached to protected requests.
// The session manager is the production implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the finance service API.
// It handles request construction, authentication, retry with
// exponential backoff, and error classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
	maxRetries int
	paths      AuthPaths

	// sleepFunc is called to wait between retries. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates an API client. baseURL is the service root, for example
// "http://localhost:8000/api/v1". token may be nil for a client that only
// calls unauthenticated endpoints.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		maxRetries: defaultMaxRetries,
		paths:      DefaultAuthPaths(),
		sleepFunc:  timeSleep,
	}
}

// SetMaxRetries sets how many times a retryable request is re-sent.
func (c *Client) SetMaxRetries(n int) {
	c.maxRetries = max(n, 0)
}

// SetTokenSource replaces the credential source used for protected requests.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.token = ts
}

// Get fetches path and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Send(ctx, http.MethodGet, path, nil)
}

// Send issues method against path with payload encoded as JSON (nil for no
// body) and returns the response body.
func (c *Client) Send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s payload: %w", method, path, err)
		}

		body = b
	}

	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	return readBody(resp, method, path)
}

// Do executes an HTTP request against the API with the client's credential.
// The path is appended to the base URL. For a non-nil body, Content-Type is
// set to application/json. The caller closes the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var bearer func() (string, error)
	if c.token != nil {
		bearer = c.token.Token
	}

	return c.do(ctx, method, path, body, bearer)
}

func (c *Client) do(
	ctx context.Context, method, path string, body []byte, bearer func() (string, error),
) (*http.Response, error) {
	url := c.baseURL + path
	requestID := uuid.NewString()
	retries := c.maxRetries

	var tok string
	if bearer != nil {
		t, err := bearer()
		if err != nil {
			return nil, fmt.Errorf("api: obtaining token: %w", err)
		}

		tok = t
	}

	if !isIdempotent(method) {
		retries = 0
	}

	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, url, body, requestID, tok)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
			}

			if attempt < retries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.String("request_id", requestID),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("api: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = nil
		}

		if isRetryable(resp.StatusCode) && attempt < retries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("api: request canceled: %w", err)
			}

			attempt++

			continue
		}

		reqID := resp.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = requestID
		}

		apiErr := newAPIError(resp.StatusCode, reqID, errBody)

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry). An empty tok sends no
// Authorization header.
func (c *Client) doOnce(
	ctx context.Context, method, url string, body []byte, requestID, tok string,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if tok != "" {
		(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// readBody reads and closes a successful response body.
func readBody(resp *http.Response, method, path string) ([]byte, error) {
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s response: %w", ErrTransport, method, path, err)
	}

	return b, nil
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
