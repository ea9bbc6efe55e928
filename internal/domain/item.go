package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes the two content streams handled by the relay.
type Kind string

const (
	KindNews Kind = "news"
	KindJobs Kind = "jobs"
)

// ParseKind maps user input (bot args, URL params) onto a known Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindNews:
		return KindNews, nil
	case KindJobs:
		return KindJobs, nil
	default:
		return "", fmt.Errorf("unknown kind %q", value)
	}
}

// ContentItem is a typed candidate after it has been fetched from a source.
type ContentItem interface {
	Kind() Kind
	DedupID() string
	DisplayTitle() string
	Validate() error
}

// NewsItem is a story from the Hacker News ranking.
type NewsItem struct {
	ID    int64
	Title string
	URL   string
	Type  string
}

func (n NewsItem) Kind() Kind           { return KindNews }
func (n NewsItem) DedupID() string      { return strconv.FormatInt(n.ID, 10) }
func (n NewsItem) DisplayTitle() string { return n.Title }

// Validate accepts only link stories; asks, polls and text posts are skipped.
func (n NewsItem) Validate() error {
	if n.Type != "story" {
		return fmt.Errorf("%w: type %q", ErrIneligible, n.Type)
	}
	if strings.TrimSpace(n.URL) == "" || strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: missing title or url", ErrIneligible)
	}
	return nil
}

// JobItem is a remote job posting.
type JobItem struct {
	ID          string
	Title       string
	Company     string
	JobType     string
	Industry    string
	Description string
	URL         string
}

func (j JobItem) Kind() Kind           { return KindJobs }
func (j JobItem) DedupID() string      { return j.ID }
func (j JobItem) DisplayTitle() string { return j.Title }

func (j JobItem) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrIneligible)
	}
	return nil
}

// Candidate references an item from a listing. Item is set when the listing
// already carries the full payload.
type Candidate struct {
	ID   string
	Item ContentItem
}

// ProcessedRecord marks an item as final: published or judged not relevant.
type ProcessedRecord struct {
	ItemID      string
	Kind        Kind
	Title       string
	ProcessedAt time.Time
}

// StatisticsCounter is the number of publications to one channel on one day.
type StatisticsCounter struct {
	Date      string `json:"date"`
	ChannelID string `json:"channel_id"`
	Count     int64  `json:"posts_count"`
}

// Message is a rendered publication ready for the transport.
type Message struct {
	ChannelID      string
	Text           string
	DisablePreview bool
}

// DayKey formats the calendar day used by statistics.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
