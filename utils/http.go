package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"retail-extractor/internal/types"
)

// HTTPClient provides HTTP functionality with rate limiting.
// Retries are handled by RetryingFetcher.
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *time.Ticker
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	h := &HTTPClient{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: newTransport(),
		},
		config: config,
		logger: logger,
	}
	if config.RequestDelay > 0 {
		h.limiter = time.NewTicker(config.RequestDelay)
	}
	return h
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Fetch performs a rate limited GET and returns the body converted to UTF-8
func (h *HTTPClient) Fetch(ctx context.Context, url string) (*Page, error) {
	if h.limiter != nil {
		select {
		case <-h.limiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sr-RS,sr;q=0.9,en-US;q=0.8,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	h.logger.Debugf("Making request to %s", url)

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewFetchError("http", url, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if permanentStatus(resp.StatusCode) {
			return nil, types.NewPermanentFetchError("http", url, message, nil)
		}
		return nil, types.NewFetchError("http", url, message, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewFetchError("http", url, "failed to read response body", err)
	}

	body, err = toUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, types.NewPermanentFetchError("http", url, "failed to convert body to UTF-8", err)
	}

	h.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), url)
	return &Page{URL: url, Status: resp.StatusCode, Body: body}, nil
}

// permanentStatus reports client errors that a retry will not change.
// 408 and 429 are transient.
func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

// toUTF8 converts body using the charset from the header or the document
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reset drops pooled connections so the next request dials fresh
func (h *HTTPClient) Reset() error {
	h.client.CloseIdleConnections()
	h.client.Transport = newTransport()
	return nil
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
	h.client.CloseIdleConnections()
}
