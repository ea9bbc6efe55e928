package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// AdminDeps wires the out-of-band administrative surface.
type AdminDeps struct {
	Runner    *Runner
	Scheduler *Scheduler
	Store     ports.AdminStore
	Stats     ports.StatsStore
	Location  *time.Location
}

// Admin backs the bot commands and the HTTP admin API.
type Admin struct {
	runner    *Runner
	scheduler *Scheduler
	store     ports.AdminStore
	stats     ports.StatsStore
	loc       *time.Location
	now       func() time.Time
}

// NewAdmin builds the administrative use case.
func NewAdmin(deps AdminDeps) *Admin {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Admin{
		runner:    deps.Runner,
		scheduler: deps.Scheduler,
		store:     deps.Store,
		stats:     deps.Stats,
		loc:       loc,
		now:       time.Now,
	}
}

// Kinds lists the kinds that can be triggered.
func (a *Admin) Kinds() []domain.Kind {
	return a.runner.Kinds()
}

// RunNow executes a run and waits for it.
func (a *Admin) RunNow(ctx context.Context, kind domain.Kind) (Result, error) {
	return a.runner.Run(ctx, kind)
}

// Trigger starts a run in the background.
func (a *Admin) Trigger(ctx context.Context, kind domain.Kind) error {
	return a.runner.Start(ctx, kind)
}

// InProgress reports whether the kind is running.
func (a *Admin) InProgress(kind domain.Kind) bool {
	return a.runner.InProgress(kind)
}

// ClearProcessed wipes dedup history of the given kinds. Items become eligible again.
func (a *Admin) ClearProcessed(ctx context.Context, kinds ...domain.Kind) (map[domain.Kind]int64, error) {
	deleted := make(map[domain.Kind]int64, len(kinds))
	for _, kind := range kinds {
		n, err := a.store.ClearProcessed(ctx, kind)
		if err != nil {
			return deleted, fmt.Errorf("clear %s: %w", kind, err)
		}
		deleted[kind] = n
	}
	return deleted, nil
}

// Today returns the counters of the current calendar day.
func (a *Admin) Today(ctx context.Context) ([]domain.StatisticsCounter, error) {
	return a.StatsFor(ctx, a.now().In(a.loc))
}

// StatsFor returns the counters of the given day.
func (a *Admin) StatsFor(ctx context.Context, day time.Time) ([]domain.StatisticsCounter, error) {
	return a.stats.StatsForDay(ctx, day)
}

// Location is the calendar used by statistics.
func (a *Admin) Location() *time.Location {
	return a.loc
}

func (a *Admin) StopAuto(ctx context.Context) error {
	return a.scheduler.Stop(ctx)
}

func (a *Admin) StartAuto(ctx context.Context) error {
	return a.scheduler.Start(ctx)
}

func (a *Admin) AutoRunning() bool {
	return a.scheduler.Running()
}
