package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// PollerDeps wires all driven adapters into one source poller.
type PollerDeps struct {
	Source    ports.CandidateSource
	Composer  Composer
	Dedup     ports.DedupStore
	Publisher *Publisher
	// MaxItems is the default per-run cap used by scheduled runs.
	MaxItems     int
	PublishDelay time.Duration
	Logger       zerolog.Logger
}

// Poller drives one content kind from candidate list to published messages.
type Poller struct {
	source    ports.CandidateSource
	composer  Composer
	dedup     ports.DedupStore
	publisher *Publisher
	maxItems  int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	log       zerolog.Logger
}

// Result summarizes a single run. Published is the processed count.
type Result struct {
	Candidates  int `json:"candidates"`
	Published   int `json:"published"`
	Seen        int `json:"seen"`
	NotRelevant int `json:"not_relevant"`
	Deferred    int `json:"deferred"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// NewPoller constructs the orchestration component of one kind.
func NewPoller(deps PollerDeps) *Poller {
	return &Poller{
		source:    deps.Source,
		composer:  deps.Composer,
		dedup:     deps.Dedup,
		publisher: deps.Publisher,
		maxItems:  deps.MaxItems,
		delay:     deps.PublishDelay,
		sleep:     sleepContext,
		log:       deps.Logger,
	}
}

func (p *Poller) Kind() domain.Kind { return p.source.Kind() }

func (p *Poller) MaxItems() int { return p.maxItems }

type outcome int

const (
	outcomePublished outcome = iota
	outcomeSeen
	outcomeNotRelevant
	outcomeDeferred
	outcomeSkipped
	outcomeFailed
)

// RunOnce processes candidates in source order until maxItems publishes or the list ends.
// Only a candidate-list failure aborts the run.
func (p *Poller) RunOnce(ctx context.Context, maxItems int) (Result, error) {
	var res Result
	if maxItems <= 0 {
		return res, nil
	}

	candidates, err := p.source.ListCandidates(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return res, err
	}
	res.Candidates = len(candidates)
	p.composer.Begin()

	for _, candidate := range candidates {
		if res.Published >= maxItems {
			p.log.Info().Int("limit", maxItems).Msg("per-run limit reached")
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch p.processCandidate(ctx, candidate) {
		case outcomePublished:
			res.Published++
			if res.Published < maxItems {
				if err := p.sleep(ctx, p.delay); err != nil {
					return res, err
				}
			}
		case outcomeSeen:
			res.Seen++
		case outcomeNotRelevant:
			res.NotRelevant++
		case outcomeDeferred:
			res.Deferred++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
	}

	return res, nil
}

func (p *Poller) processCandidate(ctx context.Context, candidate domain.Candidate) outcome {
	log := p.log.With().Str("item", candidate.ID).Logger()

	seen, err := p.dedup.IsProcessed(ctx, p.Kind(), candidate.ID)
	if err != nil {
		log.Warn().Err(err).Msg("dedup check failed, skipping item")
		return outcomeFailed
	}
	if seen {
		return outcomeSeen
	}

	item, err := p.source.FetchItem(ctx, candidate)
	if err != nil {
		log.Warn().Err(err).Msg("fetch item failed")
		return outcomeFailed
	}
	if err := item.Validate(); err != nil {
		log.Debug().Err(err).Msg("item skipped")
		return outcomeSkipped
	}

	msg, err := p.composer.Compose(ctx, item)
	switch {
	case errors.Is(err, domain.ErrNotRelevant):
		if err := p.dedup.MarkProcessed(ctx, domain.ProcessedRecord{
			ItemID: candidate.ID,
			Kind:   item.Kind(),
			Title:  item.DisplayTitle(),
		}); err != nil {
			log.Warn().Err(err).Msg("mark not relevant failed")
		}
		log.Info().Str("title", item.DisplayTitle()).Msg("item not relevant")
		return outcomeNotRelevant
	case err != nil:
		log.Warn().Err(err).Msg("transform unavailable, item left for a later run")
		return outcomeDeferred
	}

	if err := p.publisher.Publish(ctx, candidate.ID, item, msg); err != nil {
		log.Error().Err(err).Msg("publish failed")
		return outcomeFailed
	}
	log.Info().Str("title", item.DisplayTitle()).Str("channel", msg.ChannelID).Msg("item published")
	return outcomePublished
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
