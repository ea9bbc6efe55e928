package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/httpapi"
	"NewsRelay/internal/infrastructure/feed"
	"NewsRelay/internal/infrastructure/llm"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/infrastructure/translate"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/scanner"
	"NewsRelay/internal/usecase"
)

// ErrAlreadyRunning is returned when another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	log       zerolog.Logger
	lock      *flock.Flock
	store     *storage.SQLStore
	bot       *telegram.CommandBot
	scheduler *usecase.Scheduler
	driver    *scheduler.CronScheduler
	api       *httpapi.Server
}

// New opens the store, builds every adapter and registers the pollers of the configured channels.
func New(ctx context.Context, cfg config.Config, baseLogger zerolog.Logger) (*Application, error) {
	lock, err := acquireLock(cfg.Database)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		releaseLock(lock)
		return nil, err
	}

	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		_ = store.Close()
		releaseLock(lock)
		return nil, err
	}

	loc := cfg.Scheduler.Location()
	notifier := telegram.NewNotifier(bot, cfg.Telegram.OwnerID)
	publisher := usecase.NewPublisher(notifier, store, store, loc, logging.Component(baseLogger, "publisher"))
	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := scanner.NewRegistry()
	registry.Register(feed.NewHackerNewsSource(cfg.News, httpClient))
	registry.Register(feed.NewJobicySource(cfg.Jobs, httpClient))

	var (
		pollers []*usecase.Poller
		plans   []usecase.Plan
	)
	channels := map[string]string{}

	if cfg.Telegram.NewsChannel != "" {
		source, err := registry.Resolve(domain.KindNews)
		if err != nil {
			return nil, closeOnError(store, lock, err)
		}
		summarizer := llm.NewSummarizer(
			llm.NewChatClient(cfg.Summarizer, nil),
			llm.NewKeyPool(cfg.Summarizer.APIKeys),
			cfg.Summarizer.RetryBackoff.Duration,
			cfg.Summarizer.PromptTemplate,
			logging.Component(baseLogger, "summarizer"),
		)
		if len(cfg.Summarizer.APIKeys) == 0 {
			baseLogger.Warn().Msg("no summarizer api keys configured, news items will be deferred")
		}
		composer := usecase.NewNewsComposer(summarizer, cfg.Telegram.NewsChannel, cfg.News.DiscussionURL, cfg.Telegram.NewsSubscribeURL)
		pollers = append(pollers, usecase.NewPoller(usecase.PollerDeps{
			Source:       source,
			Composer:     composer,
			Dedup:        store,
			Publisher:    publisher,
			MaxItems:     cfg.News.MaxItemsPerRun,
			PublishDelay: cfg.News.PublishDelay.Duration,
			Logger:       logging.Component(baseLogger, "poller.news"),
		}))
		plans = append(plans, usecase.Plan{
			Kind:         domain.KindNews,
			Interval:     cfg.Scheduler.Interval.Duration,
			InitialDelay: cfg.Scheduler.NewsStartDelay.Duration,
		})
		channels[cfg.Telegram.NewsChannel] = "news"
	}

	if cfg.Telegram.JobsChannel != "" {
		source, err := registry.Resolve(domain.KindJobs)
		if err != nil {
			return nil, closeOnError(store, lock, err)
		}
		translator := translate.NewClient(cfg.Translator, nil, logging.Component(baseLogger, "translator"))
		composer := usecase.NewJobsComposer(translator, cfg.Telegram.JobsChannel, cfg.Telegram.JobsSubscribeURL, cfg.Jobs.ExcerptRunes)
		pollers = append(pollers, usecase.NewPoller(usecase.PollerDeps{
			Source:       source,
			Composer:     composer,
			Dedup:        store,
			Publisher:    publisher,
			MaxItems:     cfg.Jobs.MaxItemsPerRun,
			PublishDelay: cfg.Jobs.PublishDelay.Duration,
			Logger:       logging.Component(baseLogger, "poller.jobs"),
		}))
		plans = append(plans, usecase.Plan{
			Kind:         domain.KindJobs,
			Interval:     cfg.Scheduler.Interval.Duration,
			InitialDelay: cfg.Scheduler.JobsStartDelay.Duration,
		})
		channels[cfg.Telegram.JobsChannel] = "jobs"
	}

	runner := usecase.NewRunner(usecase.NewCoordinator(), notifier, logging.Component(baseLogger, "runner"), pollers...)
	driver := scheduler.NewCronScheduler(loc, logging.Component(baseLogger, "cron"))
	sched := usecase.NewScheduler(driver, runner, logging.Component(baseLogger, "scheduler"), plans...)

	admin := usecase.NewAdmin(usecase.AdminDeps{
		Runner:    runner,
		Scheduler: sched,
		Store:     store,
		Stats:     store,
		Location:  loc,
	})

	application := &Application{
		cfg:       cfg,
		log:       baseLogger,
		lock:      lock,
		store:     store,
		bot:       telegram.NewCommandBot(bot, admin, cfg.Telegram.OwnerID, channels, logging.Component(baseLogger, "bot")),
		scheduler: sched,
		driver:    driver,
	}
	if cfg.Admin.ListenAddr != "" {
		application.api = httpapi.NewServer(admin, store, logging.Component(baseLogger, "api"))
	}
	return application, nil
}

// Run starts polling, the schedule and the optional admin API, and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.bot.Run(gctx)
	})

	g.Go(func() error {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.log.Info().Dur("interval", a.cfg.Scheduler.Interval.Duration).Msg("automatic polling started")
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.scheduler.Stop(stopCtx); err != nil {
			return err
		}
		if err := a.driver.Drain(stopCtx); err != nil {
			a.log.Warn().Err(err).Msg("scheduled runs still in flight at shutdown")
		}
		return nil
	})

	if a.api != nil {
		g.Go(func() error {
			return a.api.Run(gctx, a.cfg.Admin.ListenAddr)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("application stopped")
	return nil
}

func (a *Application) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("close store")
	}
	releaseLock(a.lock)
}

// acquireLock guards the sqlite file against a second process. Postgres needs no lock.
func acquireLock(db config.DatabaseConfig) (*flock.Flock, error) {
	if db.Driver != "sqlite" {
		return nil, nil
	}
	if dir := filepath.Dir(db.DSN); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	lock := flock.New(db.DSN + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrAlreadyRunning, lock.Path())
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func closeOnError(store *storage.SQLStore, lock *flock.Flock, err error) error {
	_ = store.Close()
	releaseLock(lock)
	return err
}
