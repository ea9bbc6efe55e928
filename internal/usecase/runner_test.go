package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

type blockingComposer struct {
	entered chan struct{}
	release chan struct{}
	panics  bool
}

func (b *blockingComposer) Begin() {}

func (b *blockingComposer) Compose(_ context.Context, item domain.ContentItem) (domain.Message, error) {
	if b.panics {
		panic("boom")
	}
	close(b.entered)
	<-b.release
	return domain.Message{ChannelID: "@c", Text: item.DisplayTitle()}, nil
}

func newRunnerWithComposer(composer Composer, src *fakeSource, alerter ports.Alerter) *Runner {
	store := newMemStore()
	poller := NewPoller(PollerDeps{
		Source:    src,
		Composer:  composer,
		Dedup:     store,
		Publisher: NewPublisher(&fakeMessenger{}, store, store, time.UTC, zerolog.Nop()),
		MaxItems:  3,
		Logger:    zerolog.Nop(),
	})
	return NewRunner(NewCoordinator(), alerter, zerolog.Nop(), poller)
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	composer := &blockingComposer{entered: make(chan struct{}), release: make(chan struct{})}
	runner := newRunnerWithComposer(composer, newsSource(1), nil)

	require.NoError(t, runner.Start(context.Background(), domain.KindNews))
	<-composer.entered
	require.True(t, runner.InProgress(domain.KindNews))

	_, err := runner.Run(context.Background(), domain.KindNews)
	require.ErrorIs(t, err, domain.ErrRunInProgress)
	require.ErrorIs(t, runner.Start(context.Background(), domain.KindNews), domain.ErrRunInProgress)

	close(composer.release)
	require.Eventually(t, func() bool { return !runner.InProgress(domain.KindNews) }, time.Second, 5*time.Millisecond)
}

func TestRunnerClearsFlagAfterPanic(t *testing.T) {
	t.Parallel()

	runner := newRunnerWithComposer(&blockingComposer{panics: true}, newsSource(1), nil)

	_, err := runner.Run(context.Background(), domain.KindNews)
	require.Error(t, err)
	require.False(t, runner.InProgress(domain.KindNews))
}

func TestRunnerAlertsOnSourceFailure(t *testing.T) {
	t.Parallel()

	src := newsSource()
	src.listErr = errors.New("503")
	alerter := &fakeAlerter{}
	runner := newRunnerWithComposer(NewNewsComposer(&fakeSummarizer{}, "@c", "", ""), src, alerter)

	_, err := runner.Run(context.Background(), domain.KindNews)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.Len(t, alerter.texts, 1)
	require.False(t, runner.InProgress(domain.KindNews))
}

func TestRunnerUnknownKind(t *testing.T) {
	t.Parallel()

	runner := newRunnerWithComposer(&blockingComposer{}, newsSource(), nil)
	_, err := runner.Run(context.Background(), domain.KindJobs)
	require.Error(t, err)
	require.Equal(t, []domain.Kind{domain.KindNews}, runner.Kinds())
}
