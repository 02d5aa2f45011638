// Package api wraps every outbound request the apps make: bearer token
// injection, the backend's {success, message, data} envelope, error
// normalization, and 401 refresh-and-replay with exactly one refresh call in
// flight at a time.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

const refreshPath = "/auth/refresh"

// TokenSource supplies and receives tokens. The auth store implements it;
// tests use in-memory fakes.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string) error
	Clear() error
}

// Client is the shared HTTP client for all repositories.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *logrus.Logger

	// refreshGroup collapses concurrent 401s into a single refresh call;
	// the losers wait and replay with the winner's token.
	refreshGroup singleflight.Group

	// onAuthFailure runs when a 401 survives the refresh attempt. The apps
	// hook their logout flow here.
	onAuthFailure func()
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 30s transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAuthFailureHandler registers the forced-logout hook.
func WithAuthFailureHandler(fn func()) Option {
	return func(c *Client) {
		c.onAuthFailure = fn
	}
}

// WithHTTPClient substitutes the underlying transport, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, tokens TokenSource, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET and decodes the envelope's data field into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	envelope, err := c.send(ctx, method, path, payload, c.tokens.AccessToken())
	if err != nil {
		return err
	}

	if envelope.StatusCode == http.StatusUnauthorized {
		envelope, err = c.refreshAndReplay(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	return decodeEnvelope(envelope, out)
}

// response pairs the decoded envelope with the HTTP status it arrived in.
type response struct {
	StatusCode int
	Envelope   models.Envelope
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Warn("Request failed without a response")
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	var envelope models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return nil, networkError(fmt.Errorf("failed to decode response: %w", err))
	}

	return &response{StatusCode: resp.StatusCode, Envelope: envelope}, nil
}

// refreshAndReplay exchanges the refresh token for a new pair and replays the
// original request once. Concurrent callers share one refresh; if it fails
// they all fail together and the auth failure hook fires.
func (c *Client) refreshAndReplay(ctx context.Context, method, path string, payload []byte) (*response, error) {
	token, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		c.logger.WithError(err).Warn("Token refresh failed, forcing logout")
		if clearErr := c.tokens.Clear(); clearErr != nil {
			c.logger.WithError(clearErr).Error("Failed to clear tokens")
		}
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return nil, authError(err)
	}

	resp, err := c.send(ctx, method, path, payload, token.(string))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// The replayed request was rejected with a fresh token; give up.
		return nil, authError(fmt.Errorf("request rejected after token refresh"))
	}
	return resp, nil
}

func (c *Client) doRefresh(ctx context.Context) (interface{}, error) {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	resp, err := c.send(ctx, http.MethodPost, refreshPath, nil, refreshToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var tokens models.TokenRefreshResponse
	if err := json.Unmarshal(resp.Envelope.Data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if err := c.tokens.SetTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		c.logger.WithError(err).Error("Failed to persist refreshed tokens")
	}

	c.logger.Info("Access token refreshed")
	return tokens.AccessToken, nil
}

func decodeEnvelope(resp *response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !resp.Envelope.Success {
		return classify(resp.StatusCode, resp.Envelope.Message, resp.Envelope.Code)
	}

	if out == nil || len(resp.Envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Envelope.Data, out); err != nil {
		return networkError(fmt.Errorf("failed to decode response data: %w", err))
	}
	return nil
}
