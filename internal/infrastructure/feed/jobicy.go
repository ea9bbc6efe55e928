package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// JobicySource lists remote jobs; the listing already carries every field.
type JobicySource struct {
	listURL string
	count   int
	fetch   fetcher
}

var _ ports.CandidateSource = (*JobicySource)(nil)

type jobicyJob struct {
	ID          flexText `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"jobTitle"`
	Company     string   `json:"companyName"`
	Industry    flexText `json:"industry"`
	JobIndustry flexText `json:"jobIndustry"`
	JobType     flexText `json:"jobType"`
	Excerpt     string   `json:"jobExcerpt"`
	Description string   `json:"jobDescription"`
}

// Jobs stay raw so one malformed entry does not reject the whole listing.
type jobicyResponse struct {
	Jobs *[]json.RawMessage `json:"jobs"`
}

// flexText accepts a string, a number or a list of strings.
type flexText string

func (f *flexText) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = ""
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexText(s)
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		*f = flexText(strings.Join(list, ", "))
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		*f = flexText(n.String())
	}
	return nil
}

// NewJobicySource wires an HTTP client; count defaults to 20.
func NewJobicySource(cfg config.JobsConfig, client *http.Client) *JobicySource {
	count := cfg.Count
	if count <= 0 {
		count = 20
	}
	return &JobicySource{
		listURL: cfg.ListURL,
		count:   count,
		fetch:   newFetcher(client, cfg.RequestsPerSecond),
	}
}

func (s *JobicySource) Kind() domain.Kind {
	return domain.KindJobs
}

// ListCandidates returns the listing in source order with items pre-filled.
func (s *JobicySource) ListCandidates(ctx context.Context) ([]domain.Candidate, error) {
	listURL, err := s.buildListURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	var payload jobicyResponse
	if err := s.fetch.getJSON(ctx, listURL, true, &payload); err != nil {
		return nil, fmt.Errorf("%w: jobs list: %w", domain.ErrSourceUnavailable, err)
	}
	if payload.Jobs == nil {
		return nil, fmt.Errorf("%w: jobs list has no jobs array", domain.ErrSourceUnavailable)
	}

	candidates := make([]domain.Candidate, 0, len(*payload.Jobs))
	for i, raw := range *payload.Jobs {
		var job jobicyJob
		if err := json.Unmarshal(raw, &job); err != nil {
			// FetchItem reports it as an item failure.
			candidates = append(candidates, domain.Candidate{ID: rawJobID(raw, i)})
			continue
		}
		item := job.toItem()
		candidates = append(candidates, domain.Candidate{ID: item.ID, Item: item})
	}
	return candidates, nil
}

// rawJobID recovers the id of an entry that failed to decode, or names it by position.
func rawJobID(raw json.RawMessage, index int) string {
	var head struct {
		ID flexText `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err == nil {
		if id := strings.TrimSpace(string(head.ID)); id != "" {
			return id
		}
	}
	return "#" + strconv.Itoa(index)
}

// FetchItem returns the item captured by the listing.
func (s *JobicySource) FetchItem(_ context.Context, candidate domain.Candidate) (domain.ContentItem, error) {
	if candidate.Item == nil {
		return nil, fmt.Errorf("%w: job %s has no usable payload", domain.ErrItemFetchFailed, candidate.ID)
	}
	return candidate.Item, nil
}

func (s *JobicySource) buildListURL() (string, error) {
	parsed, err := url.Parse(s.listURL)
	if err != nil {
		return "", fmt.Errorf("invalid jobs url %s: %w", s.listURL, err)
	}
	query := parsed.Query()
	query.Set("count", strconv.Itoa(s.count))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (j jobicyJob) toItem() domain.JobItem {
	description := j.Description
	if strings.TrimSpace(description) == "" {
		description = j.Excerpt
	}
	industry := strings.TrimSpace(string(j.Industry))
	if industry == "" {
		industry = strings.TrimSpace(string(j.JobIndustry))
	}
	return domain.JobItem{
		ID:          strings.TrimSpace(string(j.ID)),
		Title:       strings.TrimSpace(j.Title),
		Company:     strings.TrimSpace(j.Company),
		JobType:     strings.TrimSpace(string(j.JobType)),
		Industry:    industry,
		Description: description,
		URL:         strings.TrimSpace(j.URL),
	}
}
