// Package plexa provides a client for the Plexa fund data API
package plexa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/httpx"
	"github.com/MatheusEger/fiisync/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://api.plexa.com.br"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// ErrNotFound marks a ticker the upstream does not know. List
// endpoints translate it into an empty result.
var ErrNotFound = errors.New("resource not found")

// ErrUnauthorized marks a call that failed with 401 even after the
// single re-login attempt.
var ErrUnauthorized = errors.New("unauthorized after re-login")

// ErrLogin marks a failed credential exchange: no token could be
// obtained at all, as opposed to a held token the upstream rejects.
var ErrLogin = errors.New("login failed")

// Credentials carries the upstream account login.
type Credentials struct {
	Email    string
	Password string
}

// Client talks to the Plexa API. It owns the current bearer token:
// the token is loaded from the TokenStore on first use, refreshed by
// exactly one re-login when a call comes back 401, and persisted so
// later runs skip login until the token is rejected again.
type Client struct {
	baseURL    string
	creds      Credentials
	tokens     interfaces.TokenStore
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	retry      httpx.Policy

	mu    sync.Mutex
	token string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetryPolicy sets the transient-failure retry policy
func WithRetryPolicy(policy httpx.Policy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient creates a new Plexa client. tokens may be nil when token
// persistence is not wanted (tests).
func NewClient(creds Credentials, tokens interfaces.TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:   httpx.DefaultPolicy(),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Plexa API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login exchanges the account credentials for a bearer token and
// persists it. Callers normally never invoke this directly; the client
// logs in lazily when no token is available or the current one is
// rejected.
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"usuEmail": c.creds.Email,
		"usuSenha": c.creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/site/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLogin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: %w", ErrLogin,
			&APIError{StatusCode: resp.StatusCode, Message: string(msg), Endpoint: "/site/login"})
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", ErrLogin, err)
	}
	if lr.AccessToken == "" {
		return "", fmt.Errorf("%w: %w", ErrLogin,
			&APIError{StatusCode: resp.StatusCode, Message: "login response carried no accessToken", Endpoint: "/site/login"})
	}

	if c.tokens != nil {
		if err := c.tokens.Save(lr.AccessToken); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist bearer token")
		}
	}

	c.logger.Info().Msg("Authenticated against Plexa")
	return lr.AccessToken, nil
}

// currentToken returns the token to use for the next call, loading the
// persisted one or logging in when none is held yet.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	if c.tokens != nil {
		stored, err := c.tokens.Load()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to load persisted bearer token")
		} else if stored != "" {
			c.token = stored
			return c.token, nil
		}
	}

	token, err := c.Login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return c.token, nil
}

// refreshToken replaces a token the upstream rejected. When another
// caller already replaced it, the newer token is reused instead of
// logging in a second time.
func (c *Client) refreshToken(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.token != stale {
		return c.token, nil
	}

	token, err := c.Login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return c.token, nil
}

// get performs a rate-limited authorized GET, recovering once from an
// expired token and retrying transient failures per the policy.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		token, err := c.currentToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain bearer token: %w", err)
		}

		status, err := c.doGet(ctx, path, token, result)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			// Exactly one re-login, then one retry of the call.
			token, err = c.refreshToken(ctx, token)
			if err != nil {
				return fmt.Errorf("re-login failed: %w", err)
			}
			status, err = c.doGet(ctx, path, token, result)
			if err != nil {
				return err
			}
			if status == http.StatusUnauthorized {
				return fmt.Errorf("%w (endpoint: %s)", ErrUnauthorized, path)
			}
		}
		return nil
	})
}

// doGet issues one GET attempt. A 401 status is returned to the caller
// for the re-login dance; 404 maps to ErrNotFound; throttling and
// server-side failures are marked transient.
func (c *Client) doGet(ctx context.Context, path, token string, result interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Msg("Plexa API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, httpx.Transient(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("%w (endpoint: %s)", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, httpx.Transient(&APIError{StatusCode: resp.StatusCode, Message: string(msg), Endpoint: path})
	default:
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: string(msg), Endpoint: path}
	}
}

// envelope is the {ok, data} wrapper the Plexa endpoints use. Some
// endpoints omit the ok flag, so data alone decides.
type envelope struct {
	OK   bool            `json:"ok"`
	Data json.RawMessage `json:"data"`
}

func (e *envelope) decode(into interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, into)
}
