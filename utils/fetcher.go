package utils

import (
	"context"
	"fmt"
	"time"

	"retail-extractor/internal/types"
)

// Page is a fetched document
type Page struct {
	URL    string
	Status int
	Body   []byte
	Cached bool
}

// Fetcher retrieves documents. Reset drops any session state (connections,
// browser tabs) so the next attempt starts clean.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Reset() error
	Close()
}

// RetryingFetcher retries a Fetcher a bounded number of times with a fixed
// delay, resetting it between attempts
type RetryingFetcher struct {
	inner    Fetcher
	attempts int
	delay    time.Duration
	logger   types.Logger
}

// NewRetryingFetcher wraps inner with up to attempts tries per URL
func NewRetryingFetcher(inner Fetcher, attempts int, delay time.Duration, logger types.Logger) *RetryingFetcher {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingFetcher{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
	}
}

// Fetch tries the inner fetcher until it succeeds or the attempts run out
func (r *RetryingFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		page, err := r.inner.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !types.IsRetryable(err) {
			r.logger.Warnf("Fetch failed for %s, not retrying: %v", url, err)
			return nil, err
		}

		lastErr = err
		r.logger.Warnf("Fetch failed (attempt %d/%d) for %s: %v", attempt, r.attempts, url, err)
		if attempt == r.attempts {
			break
		}

		if resetErr := r.inner.Reset(); resetErr != nil {
			r.logger.Warnf("Failed to reset fetcher: %v", resetErr)
		}

		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("all %d attempts failed for %s: %w", r.attempts, url, lastErr)
}

// Reset resets the inner fetcher
func (r *RetryingFetcher) Reset() error {
	return r.inner.Reset()
}

// Close closes the inner fetcher
func (r *RetryingFetcher) Close() {
	r.inner.Close()
}

// NewFetcher builds the fetch stack for a run: HTTP or headless browser,
// optionally behind a page cache, wrapped in the retry policy
func NewFetcher(config *types.Config, logger types.Logger, useBrowser bool) (Fetcher, error) {
	var base Fetcher
	if useBrowser {
		base = NewBrowserClient(config, logger)
	} else {
		base = NewHTTPClient(config, logger)
	}

	cache, err := NewCacheService(config)
	if err != nil {
		base.Close()
		return nil, err
	}
	if cache != nil {
		logger.Infof("Using %s page cache (ttl %v)", config.CacheBackend, config.CacheTTL)
		base = NewCachingFetcher(base, cache, config.CacheTTL, logger)
	}

	return NewRetryingFetcher(base, config.MaxRetries+1, config.RetryDelay, logger), nil
}
