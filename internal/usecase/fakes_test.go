package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"NewsRelay/internal/domain"
)

type fakeSource struct {
	kind    domain.Kind
	ids     []string
	items   map[string]domain.ContentItem
	listErr error

	mu      sync.Mutex
	fetched []string
}

func newsSource(ids ...int64) *fakeSource {
	src := &fakeSource{kind: domain.KindNews, items: map[string]domain.ContentItem{}}
	for _, id := range ids {
		key := strconv.FormatInt(id, 10)
		src.ids = append(src.ids, key)
		src.items[key] = domain.NewsItem{
			ID:    id,
			Type:  "story",
			Title: "Story " + key,
			URL:   "https://example.com/" + key,
		}
	}
	return src
}

func (f *fakeSource) Kind() domain.Kind { return f.kind }

func (f *fakeSource) ListCandidates(context.Context) ([]domain.Candidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Candidate, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, domain.Candidate{ID: id})
	}
	return out, nil
}

func (f *fakeSource) FetchItem(_ context.Context, c domain.Candidate) (domain.ContentItem, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, c.ID)
	f.mu.Unlock()

	item, ok := f.items[c.ID]
	if !ok {
		return nil, domain.ErrItemFetchFailed
	}
	return item, nil
}

func (f *fakeSource) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type memStore struct {
	mu        sync.Mutex
	processed map[domain.Kind]map[string]domain.ProcessedRecord
	stats     map[string]int64
	failCheck map[string]bool
	failMark  bool
}

func newMemStore() *memStore {
	return &memStore{
		processed: map[domain.Kind]map[string]domain.ProcessedRecord{},
		stats:     map[string]int64{},
		failCheck: map[string]bool{},
	}
}

func (m *memStore) mark(kind domain.Kind, ids ...string) {
	for _, id := range ids {
		_ = m.MarkProcessed(context.Background(), domain.ProcessedRecord{ItemID: id, Kind: kind})
	}
}

func (m *memStore) IsProcessed(_ context.Context, kind domain.Kind, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCheck[id] {
		return false, domain.ErrStore
	}
	_, ok := m.processed[kind][id]
	return ok, nil
}

func (m *memStore) MarkProcessed(_ context.Context, rec domain.ProcessedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMark {
		return domain.ErrStore
	}
	if m.processed[rec.Kind] == nil {
		m.processed[rec.Kind] = map[string]domain.ProcessedRecord{}
	}
	if _, ok := m.processed[rec.Kind][rec.ItemID]; !ok {
		m.processed[rec.Kind][rec.ItemID] = rec
	}
	return nil
}

func (m *memStore) processedIDs(kind domain.Kind) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.processed[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *memStore) IncrementStat(_ context.Context, channelID string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[domain.DayKey(day)+"|"+channelID]++
	return nil
}

func (m *memStore) StatsForDay(_ context.Context, day time.Time) ([]domain.StatisticsCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := domain.DayKey(day) + "|"
	var out []domain.StatisticsCounter
	for key, n := range m.stats {
		if strings.HasPrefix(key, prefix) {
			out = append(out, domain.StatisticsCounter{Date: domain.DayKey(day), ChannelID: key[len(prefix):], Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (m *memStore) ClearProcessed(_ context.Context, kind domain.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.processed[kind]))
	delete(m.processed, kind)
	return n, nil
}

func (m *memStore) statFor(day time.Time, channel string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[domain.DayKey(day)+"|"+channel]
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []domain.Message
	failOn map[string]bool
}

func (f *fakeMessenger) Send(_ context.Context, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for needle := range f.failOn {
		if strings.Contains(msg.Text, needle) {
			return errors.New("telegram: bad request")
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMessenger) messages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.sent...)
}

type fakeSummarizer struct {
	mu      sync.Mutex
	begins  int
	calls   []string
	replies map[string]error
}

func (f *fakeSummarizer) Begin() {
	f.mu.Lock()
	f.begins++
	f.mu.Unlock()
}

func (f *fakeSummarizer) Summarize(_ context.Context, articleURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, articleURL)
	if err := f.replies[articleURL]; err != nil {
		return "", err
	}
	return "Summary of " + articleURL, nil
}

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, text string) string {
	if text == "" {
		return ""
	}
	return "RU:" + text
}

type fakeAlerter struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeAlerter) Alert(_ context.Context, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return nil
}

