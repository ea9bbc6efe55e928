package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"NewsRelay/internal/ports"
)

type entry struct {
	name         string
	interval     time.Duration
	initialDelay time.Duration
	job          func()
}

// CronScheduler runs fixed-interval jobs on robfig/cron, with an optional first run shortly after start.
type CronScheduler struct {
	loc *time.Location
	log zerolog.Logger

	mu       sync.Mutex
	entries  []entry
	c        *cron.Cron
	timers   []*time.Timer
	stopping []context.Context
	first    sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds an idle scheduler in the given timezone.
func NewCronScheduler(loc *time.Location, log zerolog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{loc: loc, log: log}
}

// Every registers a job. It takes effect on the next Start.
func (s *CronScheduler) Every(name string, interval, initialDelay time.Duration, job func()) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}
	if interval < time.Second {
		return fmt.Errorf("job %s: interval %s is below one second", name, interval)
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry{name: name, interval: interval, initialDelay: initialDelay, job: job})
	s.mu.Unlock()
	return nil
}

// Start builds a fresh cron instance from the registered entries. Starting twice is a no-op.
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	for _, e := range s.entries {
		e := e
		id := c.Schedule(cron.Every(e.interval), cron.FuncJob(e.job))
		s.log.Debug().Str("job", e.name).Int("entry", int(id)).Dur("every", e.interval).Msg("job scheduled")

		if e.initialDelay > 0 {
			s.first.Add(1)
			s.timers = append(s.timers, time.AfterFunc(e.initialDelay, func() {
				defer s.first.Done()
				if ctx.Err() != nil {
					return
				}
				s.safeRun(e)
			}))
		}
	}
	c.Start()
	s.c = c
	return nil
}

// Stop halts future executions and returns without waiting for jobs in flight.
func (s *CronScheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil
	}
	for _, t := range s.timers {
		if t.Stop() {
			s.first.Done()
		}
	}
	s.timers = nil
	s.stopping = append(s.stopping, s.c.Stop())
	s.c = nil
	return nil
}

// Drain waits for jobs still running after Stop, until ctx is done.
func (s *CronScheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	pending := s.stopping
	s.stopping = nil
	s.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	firstDone := make(chan struct{})
	go func() {
		s.first.Wait()
		close(firstDone)
	}()
	select {
	case <-firstDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the scheduler is started.
func (s *CronScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

func (s *CronScheduler) safeRun(e entry) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Str("job", e.name).Interface("panic", rec).Msg("initial run panicked")
		}
	}()
	e.job()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
