// Package clubefii scrapes fund indicator snapshots from ClubeFII
// pages. The metrics live in client-side rendered content, so the
// page is driven through headless Chrome and the settled DOM is
// handed to a plain HTML parser.
package clubefii

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/MatheusEger/fiisync/internal/common"
)

const (
	DefaultBaseURL    = "https://www.clubefii.com.br"
	DefaultRenderWait = 3 * time.Second
	DefaultTimeout    = 60 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

// Client renders ClubeFII fund pages in headless Chrome.
type Client struct {
	baseURL    string
	renderWait time.Duration
	timeout    time.Duration
	logger     *common.Logger
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

// WithRenderWait sets how long client-side content is given to settle
func WithRenderWait(wait time.Duration) ClientOption {
	return func(c *Client) {
		c.renderWait = wait
	}
}

// WithTimeout sets the per-page timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new ClubeFII client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		renderWait: DefaultRenderWait,
		timeout:    DefaultTimeout,
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Render navigates to the fund page, waits for client-side content
// and returns the rendered document.
func (c *Client) Render(ctx context.Context, ticker string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, c.timeout)
	defer cancelTimeout()

	url := fmt.Sprintf("%s/fiis/%s", c.baseURL, strings.ToUpper(ticker))
	c.logger.Debug().Str("url", url).Msg("Rendering ClubeFII page")

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(c.renderWait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return html, nil
}
