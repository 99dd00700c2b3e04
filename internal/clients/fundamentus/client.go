// Package fundamentus scrapes server-rendered fund detail pages for
// metrics the API does not expose: the capitalization rate and the
// per-property portfolio breakdown.
package fundamentus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/httpx"
)

const (
	DefaultBaseURL = "https://fundamentus.com.br"
	DefaultTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0"
)

// Client fetches and parses Fundamentus detail pages.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	retry      httpx.Policy
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

// NewClient creates a new Fundamentus client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry:  httpx.DefaultPolicy(),
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// fetchDocument GETs the detail page for a ticker and parses it.
func (c *Client) fetchDocument(ctx context.Context, ticker string) (*goquery.Document, error) {
	url := fmt.Sprintf("%s/detalhes.php?papel=%s", c.baseURL, strings.ToUpper(ticker))

	var doc *goquery.Document
	err := c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		c.logger.Debug().Str("url", url).Msg("Fundamentus request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return httpx.Transient(fmt.Errorf("failed to execute request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return httpx.Transient(fmt.Errorf("fundamentus returned status %d for %s", resp.StatusCode, ticker))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fundamentus returned status %d for %s", resp.StatusCode, ticker)
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to parse page for %s: %w", ticker, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetCapRate returns the cap-rate percentage literal from the detail
// page, or empty string when the page does not show one.
func (c *Client) GetCapRate(ctx context.Context, ticker string) (string, error) {
	doc, err := c.fetchDocument(ctx, ticker)
	if err != nil {
		return "", err
	}
	return extractCapRate(doc), nil
}

// extractCapRate locates the labelled cell and returns the literal in
// the cell next to it.
func extractCapRate(doc *goquery.Document) string {
	var value string
	doc.Find("span.txt").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if strings.TrimSpace(span.Text()) != "Cap Rate" {
			return true
		}
		cell := span.Closest("td")
		if cell.Length() == 0 {
			return true
		}
		value = strings.TrimSpace(cell.Next().Text())
		return false
	})
	return value
}
