package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Publisher sends a rendered message and records its side effects.
type Publisher struct {
	messenger ports.Messenger
	dedup     ports.DedupStore
	stats     ports.StatsStore
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewPublisher wires the transport with the store. loc selects the statistics calendar day.
func NewPublisher(messenger ports.Messenger, dedup ports.DedupStore, stats ports.StatsStore, loc *time.Location, log zerolog.Logger) *Publisher {
	if loc == nil {
		loc = time.UTC
	}
	return &Publisher{
		messenger: messenger,
		dedup:     dedup,
		stats:     stats,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Publish returns an error only when the send fails. Once the message is out,
// mark and statistics failures are logged and swallowed. itemID is the
// candidate id the dedup check ran against.
func (p *Publisher) Publish(ctx context.Context, itemID string, item domain.ContentItem, msg domain.Message) error {
	if err := p.messenger.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s %s: %w", item.Kind(), itemID, err)
	}

	now := p.now()
	err := p.dedup.MarkProcessed(ctx, domain.ProcessedRecord{
		ItemID:      itemID,
		Kind:        item.Kind(),
		Title:       item.DisplayTitle(),
		ProcessedAt: now,
	})
	if err != nil {
		p.log.Error().Err(err).Str("item", itemID).Msg("published but not marked, item may repeat")
	}

	if err := p.stats.IncrementStat(ctx, msg.ChannelID, now.In(p.loc)); err != nil {
		p.log.Error().Err(err).Str("channel", msg.ChannelID).Msg("statistics not updated")
	}

	return nil
}
