package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Runner executes poller runs under the coordinator's one-run-per-kind rule.
type Runner struct {
	coordinator *Coordinator
	pollers     map[domain.Kind]*Poller
	order       []domain.Kind
	alerter     ports.Alerter
	log         zerolog.Logger
}

// NewRunner registers pollers in the given order. alerter may be nil.
func NewRunner(coordinator *Coordinator, alerter ports.Alerter, log zerolog.Logger, pollers ...*Poller) *Runner {
	r := &Runner{
		coordinator: coordinator,
		pollers:     map[domain.Kind]*Poller{},
		alerter:     alerter,
		log:         log,
	}
	for _, p := range pollers {
		if _, dup := r.pollers[p.Kind()]; !dup {
			r.order = append(r.order, p.Kind())
		}
		r.pollers[p.Kind()] = p
	}
	return r
}

// Kinds lists the kinds that have a poller.
func (r *Runner) Kinds() []domain.Kind {
	return append([]domain.Kind(nil), r.order...)
}

// InProgress reports whether a run of the kind is in flight.
func (r *Runner) InProgress(kind domain.Kind) bool {
	return r.coordinator.InProgress(kind)
}

// Run executes one run synchronously. It returns domain.ErrRunInProgress without waiting
// when the kind is busy.
func (r *Runner) Run(ctx context.Context, kind domain.Kind) (Result, error) {
	p, ok := r.pollers[kind]
	if !ok {
		return Result{}, fmt.Errorf("no poller for %s", kind)
	}
	if !r.coordinator.TryStart(kind) {
		r.log.Info().Str("kind", string(kind)).Msg("run skipped, previous run still in progress")
		return Result{}, domain.ErrRunInProgress
	}
	return r.execute(ctx, p)
}

// Start claims the kind and runs it in the background.
func (r *Runner) Start(ctx context.Context, kind domain.Kind) error {
	p, ok := r.pollers[kind]
	if !ok {
		return fmt.Errorf("no poller for %s", kind)
	}
	if !r.coordinator.TryStart(kind) {
		return domain.ErrRunInProgress
	}
	go func() {
		_, _ = r.execute(ctx, p)
	}()
	return nil
}

// execute assumes the caller already holds the kind's claim and always releases it.
func (r *Runner) execute(ctx context.Context, p *Poller) (res Result, err error) {
	kind := p.Kind()
	log := r.log.With().Str("kind", string(kind)).Str("run_id", uuid.NewString()).Logger()
	started := time.Now()

	defer r.coordinator.Finish(kind)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("run panicked: %v", rec)
			log.Error().Str("stack", string(debug.Stack())).Msg("run panicked")
		}
	}()

	log.Info().Int("limit", p.MaxItems()).Msg("run started")
	res, err = p.RunOnce(ctx, p.MaxItems())
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(started)).Msg("run failed")
		if errors.Is(err, domain.ErrSourceUnavailable) {
			r.alert(ctx, log, fmt.Sprintf("⚠️ Проверка %s не удалась: %v", kind, err))
		}
		return res, err
	}

	log.Info().
		Int("candidates", res.Candidates).
		Int("published", res.Published).
		Int("seen", res.Seen).
		Int("not_relevant", res.NotRelevant).
		Int("deferred", res.Deferred).
		Int("failed", res.Failed).
		Dur("took", time.Since(started)).
		Msg("run finished")
	return res, nil
}

func (r *Runner) alert(ctx context.Context, log zerolog.Logger, text string) {
	if r.alerter == nil {
		return
	}
	if err := r.alerter.Alert(ctx, text); err != nil {
		log.Warn().Err(err).Msg("owner alert failed")
	}
}
