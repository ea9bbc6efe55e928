package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const (
	tableProcessed = "processed_items"
	tableStats     = "publish_stats"
)

// SQLStore persists processed items and publication statistics.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.DedupStore = (*SQLStore)(nil)
	_ ports.StatsStore = (*SQLStore)(nil)
	_ ports.AdminStore = (*SQLStore)(nil)
)

// New wires a sql.DB implementation for the given dialect.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.placeholder).RunWith(db),
		now:     time.Now,
	}
}

// Migrate applies the embedded schema; statements are idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile(s.dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(raw)); err != nil {
		return fmt.Errorf("%w: apply schema: %w", domain.ErrStore, err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the backend is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsProcessed checks whether the item already reached a final state.
func (s *SQLStore) IsProcessed(ctx context.Context, kind domain.Kind, itemID string) (bool, error) {
	var one int
	err := s.sb.Select("1").
		From(tableProcessed).
		Where(sq.Eq{"kind": string(kind), "item_id": itemID}).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: query processed %s/%s: %w", domain.ErrStore, kind, itemID, err)
	}
	return true, nil
}

// MarkProcessed records the item; marking an already recorded item is a no-op.
func (s *SQLStore) MarkProcessed(ctx context.Context, record domain.ProcessedRecord) error {
	at := record.ProcessedAt
	if at.IsZero() {
		at = s.now()
	}

	_, err := s.sb.Insert(tableProcessed).
		Columns("kind", "item_id", "title", "processed_at").
		Values(string(record.Kind), record.ItemID, record.Title, at.UTC()).
		Suffix("ON CONFLICT (kind, item_id) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: mark processed %s/%s: %w", domain.ErrStore, record.Kind, record.ItemID, err)
	}
	return nil
}

// IncrementStat bumps the counter of the channel for the given day, creating it at 1.
func (s *SQLStore) IncrementStat(ctx context.Context, channelID string, day time.Time) error {
	_, err := s.sb.Insert(tableStats).
		Columns("stat_date", "channel_id", "posts_count").
		Values(domain.DayKey(day), channelID, 1).
		Suffix("ON CONFLICT (stat_date, channel_id) DO UPDATE SET " + s.dialect.incrementSet).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: increment stat %s: %w", domain.ErrStore, channelID, err)
	}
	return nil
}

// StatsForDay lists all channel counters of one calendar day.
func (s *SQLStore) StatsForDay(ctx context.Context, day time.Time) ([]domain.StatisticsCounter, error) {
	rows, err := s.sb.Select("stat_date", "channel_id", "posts_count").
		From(tableStats).
		Where(sq.Eq{"stat_date": domain.DayKey(day)}).
		OrderBy("channel_id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query stats: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var result []domain.StatisticsCounter
	for rows.Next() {
		var c domain.StatisticsCounter
		if err := rows.Scan(&c.Date, &c.ChannelID, &c.Count); err != nil {
			return nil, fmt.Errorf("%w: scan stat: %w", domain.ErrStore, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %w", domain.ErrStore, err)
	}
	return result, nil
}

// ClearProcessed deletes every processed record of the kind.
func (s *SQLStore) ClearProcessed(ctx context.Context, kind domain.Kind) (int64, error) {
	res, err := s.sb.Delete(tableProcessed).
		Where(sq.Eq{"kind": string(kind)}).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: clear %s: %w", domain.ErrStore, kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", domain.ErrStore, err)
	}
	return n, nil
}
