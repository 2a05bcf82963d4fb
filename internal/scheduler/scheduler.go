// Package scheduler runs a cycle function on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"go.uber.org/zap"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// CycleFunc is one unit of scheduled work. Its error is logged and does not
// stop the loop.
type CycleFunc func(ctx context.Context) error

type Scheduler struct {
	clock    Clock
	interval time.Duration
	log      *logger.Logger
}

func New(clock Clock, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{clock: clock, interval: interval, log: log}
}

// Run executes fn immediately and then every interval, measured from the
// start of the previous cycle. A cycle that overruns the interval delays the
// next one; cycles never overlap. Cancellation is checked between cycles
// only, so a running cycle always completes. Run returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context, fn CycleFunc) error {
	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := s.clock.Now()
		if err := fn(ctx); err != nil {
			s.log.Error("Cycle failed", zap.Int("cycle", cycle), zap.Error(err))
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		elapsed := s.clock.Now().Sub(started)

		wait := s.interval - elapsed
		if wait < 0 {
			s.log.Warn("Cycle overran interval", zap.Duration("elapsed", elapsed), zap.Duration("interval", s.interval))

			wait = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}
