package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every interval with the scheduled tick time.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// Scheduler drives the long-running mode: repeated scan invocations on a
// fixed cadence. Each invocation stays a discrete batch; a failed tick is
// logged and the loop moves on to the next interval.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function at each interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := s.nextTick(time.Now())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextTick(time.Now())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_tick", next).Msg("waiting for next scan")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		s.logger.Info().Time("tick", next).Msg("executing scheduled scan")
		if err := tick(ctx, next); err != nil {
			s.logger.Error().Err(err).Time("tick", next).Msg("scheduled scan failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	aligned := now.Truncate(s.opts.Interval)
	if !aligned.After(now) {
		aligned = aligned.Add(s.opts.Interval)
	}
	return aligned
}
