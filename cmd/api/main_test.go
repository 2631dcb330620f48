package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-extractor/internal/types"
	"retail-extractor/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	config := types.DefaultConfig()
	config.RequestDelay = 0
	config.MaxRetries = 0
	config.Limit = 5

	s := NewServer(config)
	s.logger.SetOutput(io.Discard)
	s.newFetcher = func(c *types.Config, logger types.Logger, _ bool) (utils.Fetcher, error) {
		return utils.NewFetcher(c, logger, false)
	}

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, APIResponse) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHandleExtract(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><head><script type="application/ld+json">
			{"@type":"Product","sku":"ABC123","name":"Acme Widget X1","offers":{"price":19.99}}
		</script></head><body></body></html>`)
	}))
	defer shop.Close()

	api := newTestServer(t)

	resp, out := post(t, api.URL+"/extract", `{"site":"gigatron","urls":["`+shop.URL+`/proizvod/a","`+shop.URL+`/proizvod/a"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, out.Success, out.Error)

	assert.Equal(t, "gigatron", out.Data.Site)
	assert.Equal(t, 1, out.Data.Stats.Processed, "duplicate urls are removed")

	master := out.Data.Tables["master"]
	require.NotNil(t, master)
	assert.Equal(t, []string{"providerkey", "gtin", "brand", "title", "price"}, master.Header)
	assert.Equal(t, [][]string{{"ABC123", "ABC123", "Acme", "Acme Widget X1", "19.99"}}, master.Rows)
	assert.NotContains(t, out.Data.Tables, "spec")
	assert.NotContains(t, out.Data.Tables, "media")
}

func TestHandleExtract_BadRequests(t *testing.T) {
	api := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "Invalid request body"},
		{"no urls", `{"site":"gigatron","urls":[" "]}`, "No urls provided"},
		{"unknown site", `{"site":"westside","urls":["https://example.com/p"]}`, "no adapter found"},
		{"too many", `{"site":"gigatron","urls":["a","b","c","d","e","f"]}`, "Too many urls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, api.URL+"/extract", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, out.Success)
			assert.Contains(t, out.Error, tt.want)
		})
	}

	resp, err := http.Get(api.URL + "/extract")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/health")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health["status"])

	_, _ = post(t, api.URL+"/extract", `{"site":"gigatron","urls":["http://127.0.0.1:1/proizvod/x"]}`)

	resp, err = http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `extractor_documents_total{result="failed",site="gigatron"} 1`)
}

func TestNewServer(t *testing.T) {
	s := NewServer(types.DefaultConfig())
	assert.NotNil(t, s.metrics)
	assert.Equal(t, logrus.InfoLevel, s.logger.GetLevel())
}
