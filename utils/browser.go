package utils

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"retail-extractor/internal/types"
)

// BrowserClient fetches pages through a headless Chrome session.
// The session is started lazily and recreated by Reset.
type BrowserClient struct {
	config *types.Config
	logger types.Logger
	settle time.Duration

	// execPath overrides the Chrome binary lookup when set
	execPath string

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
		settle: 2 * time.Second,
	}
}

func (b *BrowserClient) session() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so every tab below shares this process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.logger.Debug("Started headless browser session")
	return browserCtx, nil
}

// Fetch renders the page in a new tab and returns its outer HTML
func (b *BrowserClient) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browserCtx, err := b.session()
	if err != nil {
		return nil, types.NewFetchError("browser", url, "failed to start browser", err)
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.config.Timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewFetchError("browser", url, "failed to get page content", err)
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", url, len(html))
	return &Page{URL: url, Status: 200, Body: []byte(html)}, nil
}

// Reset tears down the browser so the next fetch launches a fresh one
func (b *BrowserClient) Reset() error {
	b.shutdown()
	b.logger.Debug("Browser session reset")
	return nil
}

// Close cleans up resources
func (b *BrowserClient) Close() {
	b.shutdown()
}

func (b *BrowserClient) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.browserCancel = nil
	b.allocCancel = nil
}
