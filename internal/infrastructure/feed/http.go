package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "NewsRelay/1.0"

// fetcher performs throttled JSON GETs against one upstream host.
type fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newFetcher(client *http.Client, requestsPerSecond float64) fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return fetcher{client: client, limiter: rate.NewLimiter(limit, 1)}
}

// getJSON decodes the response body into v. With requireJSON the content type must be application/json.
func (f fetcher) getJSON(ctx context.Context, url string, requireJSON bool, v any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}

	if requireJSON {
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mediaType != "application/json" {
			return fmt.Errorf("%s returned content type %q", url, resp.Header.Get("Content-Type"))
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
