package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/model"
)

// ErrSweepInProgress is returned when RunOnce is called while another sweep,
// in this process or another one sharing the store, is still running. The
// caller should skip, not queue.
var ErrSweepInProgress = eris.New("lifecycle: sweep already in progress")

// Recorder receives sweep outcomes. internal/metrics implements it.
type Recorder interface {
	DealsTransitioned(from, to model.DealStatus, n int64)
	SweepFinished(d time.Duration, failedPhases int)
}

// Report summarizes one sweep.
type Report struct {
	RunID        string    `json:"run_id"`
	Today        time.Time `json:"today"`
	Activated    int64     `json:"activated"`
	Expired      int64     `json:"expired"`
	Reactivated  int64     `json:"reactivated"`
	FailedPhases []string  `json:"failed_phases,omitempty"`
}

// Total returns the number of deals moved across all phases.
func (r Report) Total() int64 {
	return r.Activated + r.Expired + r.Reactivated
}

func (r *Report) add(phase Phase, n int64) {
	switch phase.Name {
	case "activate":
		r.Activated += n
	case "expire":
		r.Expired += n
	case "reactivate":
		r.Reactivated += n
	}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithLocation sets the timezone used to decide today's date.
func WithLocation(loc *time.Location) SweeperOption {
	return func(s *Sweeper) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) SweeperOption {
	return func(s *Sweeper) { s.recorder = r }
}

// Sweeper is the singleton periodic job that moves deals between draft,
// active and expired according to today's date.
type Sweeper struct {
	store    Store
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	recorder Recorder
	running  atomic.Bool
}

// NewSweeper creates a Sweeper. interval <= 0 means hourly.
func NewSweeper(store Store, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	s := &Sweeper{
		store:    store,
		interval: interval,
		loc:      time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce applies every phase once. A failing phase is logged and skipped;
// the remaining phases still run and the joined error is returned. Each
// phase is idempotent so the next tick simply retries. The store's sweep lock
// is held for the whole run.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	unlock, ok, err := s.store.TryLock(ctx)
	if err != nil {
		return Report{}, err
	}
	if !ok {
		return Report{}, ErrSweepInProgress
	}
	defer unlock()

	start := time.Now()
	report := Report{
		RunID: uuid.NewString(),
		Today: model.DateOf(s.now().In(s.loc)),
	}
	log := zap.L().With(
		zap.String("component", "lifecycle.sweeper"),
		zap.String("run_id", report.RunID),
		zap.String("today", report.Today.Format(time.DateOnly)),
	)

	var errs []error
	for _, phase := range Phases {
		n, err := s.store.ApplyPhase(ctx, phase, report.Today)
		if err != nil {
			log.Error("lifecycle: phase failed",
				zap.String("phase", phase.Name),
				zap.Error(err),
			)
			report.FailedPhases = append(report.FailedPhases, phase.Name)
			errs = append(errs, err)
			continue
		}
		report.add(phase, n)
		if s.recorder != nil && n > 0 {
			s.recorder.DealsTransitioned(phase.From, phase.To, n)
		}
	}

	if s.recorder != nil {
		s.recorder.SweepFinished(time.Since(start), len(report.FailedPhases))
	}

	if report.Total() > 0 {
		log.Info("lifecycle: sweep complete",
			zap.Int64("activated", report.Activated),
			zap.Int64("expired", report.Expired),
			zap.Int64("reactivated", report.Reactivated),
		)
	} else {
		log.Debug("lifecycle: sweep complete, nothing to move")
	}

	return report, errors.Join(errs...)
}

// Run sweeps immediately and then every interval until ctx is cancelled.
// Failures never stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "lifecycle.sweeper"))
	log.Info("starting deal lifecycle sweeper",
		zap.Duration("interval", s.interval),
		zap.String("timezone", s.loc.String()),
	)

	s.tick(ctx, log)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("deal lifecycle sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx, log)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context, log *zap.Logger) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			log.Warn("lifecycle: another sweep is still running, skipping tick")
			return
		}
		log.Warn("lifecycle: sweep finished with errors, will retry next tick", zap.Error(err))
	}
}
