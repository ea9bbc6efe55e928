package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

// maxQueryRunes keeps the GET query under the endpoint's URL size limit.
const maxQueryRunes = 1800

// Client translates text through the public Google translate endpoint.
type Client struct {
	endpoint   string
	sourceLang string
	targetLang string
	http       *http.Client
	log        zerolog.Logger
}

var _ ports.Translator = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.TranslatorConfig, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
		http:       httpClient,
		log:        log,
	}
}

// Translate returns the translated text or, on any failure, the cleaned input.
func (c *Client) Translate(ctx context.Context, text string) string {
	cleaned := CleanHTML(text)
	if cleaned == "" {
		return ""
	}

	translated, err := c.translate(ctx, Excerpt(cleaned, maxQueryRunes))
	if err != nil {
		c.log.Warn().Err(err).Int("runes", len([]rune(cleaned))).Msg("translation failed, keeping original")
		return cleaned
	}
	return translated
}

func (c *Client) translate(ctx context.Context, text string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", c.sourceLang)
	query.Set("tl", c.targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseSegments(raw)
}

// parseSegments concatenates data[0][i][0] of the nested-array payload.
func parseSegments(raw []byte) (string, error) {
	var data []any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response")
	}
	segments, ok := data[0].([]any)
	if !ok || len(segments) == 0 {
		return "", fmt.Errorf("unexpected response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no translated segments")
	}
	return out, nil
}
