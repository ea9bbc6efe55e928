package ports

import (
	"context"
	"time"

	"NewsRelay/internal/domain"
)

// CandidateSource pulls an ordered candidate list and resolves each candidate to a typed item.
type CandidateSource interface {
	Kind() domain.Kind
	ListCandidates(ctx context.Context) ([]domain.Candidate, error)
	FetchItem(ctx context.Context, candidate domain.Candidate) (domain.ContentItem, error)
}

// DedupStore answers whether an item has already reached a final state.
type DedupStore interface {
	IsProcessed(ctx context.Context, kind domain.Kind, itemID string) (bool, error)
	MarkProcessed(ctx context.Context, record domain.ProcessedRecord) error
}

// StatsStore keeps per-day per-channel publication counters.
type StatsStore interface {
	IncrementStat(ctx context.Context, channelID string, day time.Time) error
	StatsForDay(ctx context.Context, day time.Time) ([]domain.StatisticsCounter, error)
}

// AdminStore exposes destructive maintenance operations.
type AdminStore interface {
	ClearProcessed(ctx context.Context, kind domain.Kind) (int64, error)
}

// Summarizer turns an article URL into channel-ready text.
// It returns domain.ErrNotRelevant or domain.ErrTransformUnavailable on the two non-text outcomes.
type Summarizer interface {
	Begin()
	Summarize(ctx context.Context, articleURL string) (string, error)
}

// Translator is best-effort: it never fails, it returns the cleaned input instead.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Messenger delivers rendered messages to Telegram chats.
type Messenger interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Alerter notifies the operator about run-level failures.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Scheduler controls when poller runs execute.
type Scheduler interface {
	Every(name string, interval, initialDelay time.Duration, job func()) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}
