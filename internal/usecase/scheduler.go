package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Plan describes the cadence of one kind.
type Plan struct {
	Kind         domain.Kind
	Interval     time.Duration
	InitialDelay time.Duration
}

// Scheduler wires the interval driver with the runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	plans  []Plan
	log    zerolog.Logger

	mu         sync.Mutex
	registered bool
	ctx        context.Context
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner *Runner, log zerolog.Logger, plans ...Plan) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, plans: plans, log: log}
}

// Start registers the plans once and (re)starts the driver. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	s.mu.Lock()
	s.ctx = ctx
	if !s.registered {
		for _, plan := range s.plans {
			kind := plan.Kind
			job := func() {
				_, _ = s.runner.Run(s.runContext(), kind)
			}
			if err := s.driver.Every(string(kind), plan.Interval, plan.InitialDelay, job); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.registered = true
	}
	s.mu.Unlock()

	if err := s.driver.Start(ctx); err != nil {
		return err
	}
	s.log.Info().Int("plans", len(s.plans)).Msg("automatic checks started")
	return nil
}

// Stop prevents future runs; runs already in flight complete on their own.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	if err := s.driver.Stop(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("automatic checks stopped")
	return nil
}

// Running reports whether automatic checks are active.
func (s *Scheduler) Running() bool {
	return s.driver != nil && s.driver.Running()
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
