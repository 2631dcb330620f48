package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-extractor/internal/types"
)

func TestNewHTTPClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewHTTPClient(config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, logger, client.logger)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.limiter)

	client.Close()
}

func TestNewHTTPClient_NoDelay(t *testing.T) {
	config := types.DefaultConfig()
	config.RequestDelay = 0

	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	assert.Nil(t, client.limiter)
}

func TestHTTPClient_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>test response</body></html>"))
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	page, err := client.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, string(page.Body), "test response")
}

func TestHTTPClient_Fetch_ConvertsCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in Latin-1
		w.Write([]byte{'c', 'a', 'f', 0xe9})
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 0
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	page, err := client.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "café", string(page.Body))
}

func TestHTTPClient_Fetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
	assert.True(t, errors.Is(err, types.ErrFetch))
	assert.False(t, types.IsRetryable(err))
}

func TestHTTPClient_Fetch_TransientStatusIsRetryable(t *testing.T) {
	for _, code := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		config := types.DefaultConfig()
		config.RequestDelay = 0
		client := NewHTTPClient(config, logrus.New())

		_, err := client.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, types.IsRetryable(err), "status %d", code)

		client.Close()
		server.Close()
	}
}

func TestHTTPClient_NotFoundIsFetchedOnce(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 0
	config.RetryDelay = time.Hour

	f, err := NewFetcher(config, logrus.New(), false)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestHTTPClient_Fetch_ContextCancelled(t *testing.T) {
	config := types.DefaultConfig()
	config.RequestDelay = 100 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, "http://example.com")

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestHTTPClient_ResetAndClose(t *testing.T) {
	config := types.DefaultConfig()
	client := NewHTTPClient(config, logrus.New())

	require.NoError(t, client.Reset())
	assert.NotNil(t, client.client.Transport)

	// Should not panic
	client.Close()
}
