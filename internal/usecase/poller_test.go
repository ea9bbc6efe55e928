package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
)

const newsChannel = "@hn_ru"

type newsHarness struct {
	source     *fakeSource
	store      *memStore
	messenger  *fakeMessenger
	summarizer *fakeSummarizer
	poller     *Poller
	slept      []time.Duration
	now        time.Time
}

func newNewsHarness(t *testing.T, ids ...int64) *newsHarness {
	t.Helper()

	h := &newsHarness{
		source:     newsSource(ids...),
		store:      newMemStore(),
		messenger:  &fakeMessenger{},
		summarizer: &fakeSummarizer{replies: map[string]error{}},
		now:        time.Date(2025, time.May, 4, 23, 30, 0, 0, time.UTC),
	}

	publisher := NewPublisher(h.messenger, h.store, h.store, time.UTC, zerolog.Nop())
	publisher.now = func() time.Time { return h.now }

	h.poller = NewPoller(PollerDeps{
		Source:       h.source,
		Composer:     NewNewsComposer(h.summarizer, newsChannel, "https://news.ycombinator.com/item?id=", "https://t.me/hn_ru"),
		Dedup:        h.store,
		Publisher:    publisher,
		MaxItems:     3,
		PublishDelay: 30 * time.Second,
		Logger:       zerolog.Nop(),
	})
	h.poller.sleep = func(_ context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return nil
	}
	return h
}

func TestRunOnceSkipsAlreadyProcessed(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1, 2, 3)
	h.store.mark(domain.KindNews, "1", "2")

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, 2, res.Seen)

	require.Equal(t, []string{"3"}, h.source.fetchedIDs())
	require.Equal(t, []string{"https://example.com/3"}, h.summarizer.calls)
	require.Len(t, h.messenger.messages(), 1)
	require.Equal(t, []string{"1", "2", "3"}, h.store.processedIDs(domain.KindNews))
	require.Equal(t, int64(1), h.store.statFor(h.now, newsChannel))
}

func TestRunOnceSeenItemInTheMiddleKeepsOrder(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1, 2, 3)
	h.store.mark(domain.KindNews, "2")

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 2, res.Published)
	require.Equal(t, 1, res.Seen)

	require.Equal(t, []string{"1", "3"}, h.source.fetchedIDs())
	msgs := h.messenger.messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[0].Text, "Story 1")
	require.Contains(t, msgs[1].Text, "Story 3")
	require.Equal(t, []string{"1", "2", "3"}, h.store.processedIDs(domain.KindNews))
	require.Equal(t, int64(2), h.store.statFor(h.now, newsChannel))
}

func TestRunOnceMarksByCandidateID(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 8, 9)
	// item bodies without their own id
	h.source.items["8"] = domain.NewsItem{Type: "story", Title: "Story 8", URL: "https://example.com/8"}
	h.source.items["9"] = domain.NewsItem{Type: "story", Title: "Story 9", URL: "https://example.com/9"}
	h.summarizer.replies["https://example.com/9"] = domain.ErrNotRelevant

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, 1, res.NotRelevant)
	require.Equal(t, []string{"8", "9"}, h.store.processedIDs(domain.KindNews))

	res, err = h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Zero(t, res.Published)
	require.Equal(t, 2, res.Seen)
	require.Len(t, h.messenger.messages(), 1)
}

func TestRunOnceSentinelMarksWithoutPublishing(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1, 2, 3)
	h.summarizer.replies["https://example.com/1"] = domain.ErrNotRelevant

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 2, res.Published)
	require.Equal(t, 1, res.NotRelevant)

	msgs := h.messenger.messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[0].Text, "Story 2")
	require.Contains(t, msgs[1].Text, "Story 3")
	require.Equal(t, []string{"1", "2", "3"}, h.store.processedIDs(domain.KindNews))
	require.Equal(t, int64(2), h.store.statFor(h.now, newsChannel))
	require.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, h.slept)
}

func TestRunOnceRespectsCap(t *testing.T) {
	t.Parallel()

	ids := make([]int64, 10)
	for i := range ids {
		ids[i] = int64(100 + i)
	}
	h := newNewsHarness(t, ids...)

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 3, res.Published)
	require.Len(t, h.messenger.messages(), 3)
	require.Len(t, h.source.fetchedIDs(), 3)
	// no pause once the cap is reached
	require.Len(t, h.slept, 2)

	res, err = h.poller.RunOnce(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, res.Published)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1, 2)

	first, err := h.poller.RunOnce(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 2, first.Published)

	second, err := h.poller.RunOnce(context.Background(), 5)
	require.NoError(t, err)
	require.Zero(t, second.Published)
	require.Equal(t, 2, second.Seen)
	require.Len(t, h.messenger.messages(), 2)
}

func TestRunOnceUnavailableLeavesItemForRetry(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 7)
	h.summarizer.replies["https://example.com/7"] = domain.ErrTransformUnavailable

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Deferred)
	require.Empty(t, h.store.processedIDs(domain.KindNews))

	delete(h.summarizer.replies, "https://example.com/7")
	res, err = h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, 2, h.summarizer.begins)
}

func TestRunOnceContinuesAfterItemFailures(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1, 2, 3, 4, 5)
	delete(h.source.items, "1")                          // fetch fails
	h.store.failCheck["2"] = true                         // dedup check fails
	h.messenger.failOn = map[string]bool{"Story 3": true} // send fails
	h.source.items["4"] = domain.NewsItem{ID: 4, Type: "job", Title: "Hiring", URL: "https://x"}

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, 3, res.Failed)
	require.Equal(t, 1, res.Skipped)

	// failed send and ineligible items stay unmarked
	require.Equal(t, []string{"5"}, h.store.processedIDs(domain.KindNews))
}

func TestRunOnceMarkFailureStillCountsPublish(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1)
	h.store.failMark = true

	res, err := h.poller.RunOnce(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, int64(1), h.store.statFor(h.now, newsChannel))
}

func TestRunOnceSourceUnavailable(t *testing.T) {
	t.Parallel()

	h := newNewsHarness(t, 1)
	h.source.listErr = errors.New("connection refused")

	_, err := h.poller.RunOnce(context.Background(), 3)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.Empty(t, h.source.fetchedIDs())
	require.Zero(t, h.summarizer.begins)
}

func TestJobsPollerPublishesTranslatedPosts(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	messenger := &fakeMessenger{}
	src := &fakeSource{kind: domain.KindJobs, items: map[string]domain.ContentItem{}}
	for i := 1; i <= 4; i++ {
		id := "j" + strconv.Itoa(i)
		src.ids = append(src.ids, id)
		src.items[id] = domain.JobItem{ID: id, Title: "Engineer " + id, Company: "Acme", JobType: "full-time", URL: "https://jobs/" + id}
	}
	store.mark(domain.KindJobs, "j1")

	poller := NewPoller(PollerDeps{
		Source:       src,
		Composer:     NewJobsComposer(upperTranslator{}, "@jobs_ru", "", 100),
		Dedup:        store,
		Publisher:    NewPublisher(messenger, store, store, time.UTC, zerolog.Nop()),
		MaxItems:     2,
		PublishDelay: 20 * time.Second,
		Logger:       zerolog.Nop(),
	})
	var slept []time.Duration
	poller.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	res, err := poller.RunOnce(context.Background(), poller.MaxItems())
	require.NoError(t, err)
	require.Equal(t, 2, res.Published)
	require.Equal(t, []time.Duration{20 * time.Second}, slept)

	msgs := messenger.messages()
	require.Len(t, msgs, 2)
	require.True(t, msgs[0].DisablePreview)
	require.Equal(t, "@jobs_ru", msgs[0].ChannelID)
	require.Contains(t, msgs[0].Text, "💼 *RU:Engineer j2*")
	require.Equal(t, []string{"j1", "j2", "j3"}, store.processedIDs(domain.KindJobs))
}
