package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// HackerNewsSource lists the best stories ranking and fetches story details.
type HackerNewsSource struct {
	baseURL string
	topN    int
	fetch   fetcher
}

var _ ports.CandidateSource = (*HackerNewsSource)(nil)

type hnItem struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Score int    `json:"score"`
}

// NewHackerNewsSource wires an HTTP client; topN defaults to 30.
func NewHackerNewsSource(cfg config.NewsConfig, client *http.Client) *HackerNewsSource {
	topN := cfg.TopN
	if topN <= 0 {
		topN = 30
	}
	return &HackerNewsSource{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		topN:    topN,
		fetch:   newFetcher(client, cfg.RequestsPerSecond),
	}
}

func (s *HackerNewsSource) Kind() domain.Kind {
	return domain.KindNews
}

// ListCandidates returns the first topN ids of the ranking, in ranking order.
func (s *HackerNewsSource) ListCandidates(ctx context.Context) ([]domain.Candidate, error) {
	var ids []int64
	if err := s.fetch.getJSON(ctx, s.baseURL+"/beststories.json", false, &ids); err != nil {
		return nil, fmt.Errorf("%w: best stories: %w", domain.ErrSourceUnavailable, err)
	}
	if ids == nil {
		return nil, fmt.Errorf("%w: best stories payload is not a list", domain.ErrSourceUnavailable)
	}

	if len(ids) > s.topN {
		ids = ids[:s.topN]
	}
	candidates := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, domain.Candidate{ID: strconv.FormatInt(id, 10)})
	}
	return candidates, nil
}

// FetchItem loads the story details.
func (s *HackerNewsSource) FetchItem(ctx context.Context, candidate domain.Candidate) (domain.ContentItem, error) {
	var item *hnItem
	if err := s.fetch.getJSON(ctx, fmt.Sprintf("%s/item/%s.json", s.baseURL, candidate.ID), false, &item); err != nil {
		return nil, fmt.Errorf("%w: item %s: %w", domain.ErrItemFetchFailed, candidate.ID, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s is gone", domain.ErrItemFetchFailed, candidate.ID)
	}

	id := item.ID
	if id == 0 {
		id, _ = strconv.ParseInt(candidate.ID, 10, 64)
	}
	return domain.NewsItem{
		ID:    id,
		Title: strings.TrimSpace(item.Title),
		URL:   strings.TrimSpace(item.URL),
		Type:  item.Type,
	}, nil
}
