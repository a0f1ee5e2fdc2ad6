//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	httpdelivery "go-shorturl/internal/urlservice/delivery/http"
	"go-shorturl/internal/urlservice/enrichment"
	"go-shorturl/internal/urlservice/shortcode"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// skipIfShort skips the test if running in short mode or if SKIP_INTEGRATION is set
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("SKIP_INTEGRATION") != "" {
		t.Skip("Skipping integration test (SKIP_INTEGRATION set)")
	}
}

// waitForHealthy polls a health endpoint until it returns 200 or timeout is reached
func waitForHealthy(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	return fmt.Errorf("timeout waiting for %s to be healthy", url)
}

// startService serves the full router over store and waits for readiness.
func startService(t *testing.T, store usecase.RedirectStore) string {
	t.Helper()
	logger := zaptest.NewLogger(t)

	service := usecase.NewResolutionService(store, shortcode.NewGenerator(), enrichment.NewEnricher(), logger, usecase.Config{})
	srv := httptest.NewServer(nil)
	handler := httpdelivery.NewHandler(service, srv.URL, store, logger.Named("handler"))
	srv.Config.Handler = httpdelivery.NewRouter(handler, logger.Named("middleware"), []string{"*"})
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, waitForHealthy(ctx, srv.URL+"/readyz", 30*time.Second))
	return srv.URL
}

// noFollow returns redirects to the caller instead of following them.
var noFollow = &http.Client{
	Timeout: 5 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func postShortURL(t *testing.T, base string, body map[string]string) (*http.Response, httpdelivery.CreateShortURLResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := noFollow.Post(base+"/shorturls", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var created httpdelivery.CreateShortURLResponse
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	}
	return resp, created
}

func getStats(t *testing.T, base, code string) httpdelivery.StatsResponse {
	t.Helper()
	resp, err := noFollow.Get(base + "/shorturls/" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats httpdelivery.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	return stats
}
