// Package scheduler produces the ordered sequence of per-day fetch tasks
// for the incremental harvest and owns the persisted watermark: the last
// fully merged day. The watermark advances only after a day's records,
// including tender PDF sub-fetches, are merged, so an interrupted run
// resumes at the interrupted day rather than silently skipping it.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// WatermarkStore persists the last fully processed date across runs.
type WatermarkStore interface {
	// Last returns the watermark and whether one has been persisted yet.
	Last(ctx context.Context) (time.Time, bool, error)
	// Advance moves the watermark forward to day. Moving it backward is
	// allowed only through a forced start override, not through Advance.
	Advance(ctx context.Context, day time.Time) error
}

// Scheduler decides which days still need fetching.
type Scheduler struct {
	store WatermarkStore
	// initialStart seeds the very first run, before any watermark exists.
	initialStart time.Time
	// forcedStart, when non-zero, overrides the persisted watermark.
	forcedStart time.Time
	// now is injectable for tests.
	now func() time.Time
}

func New(store WatermarkStore, initialStart time.Time, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:        store,
		initialStart: midnight(initialStart),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Scheduler)

// WithForcedStart overrides the persisted watermark with an operator-chosen
// start date.
func WithForcedStart(day time.Time) Option {
	return func(s *Scheduler) { s.forcedStart = midnight(day) }
}

// WithClock injects the current-time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// StartDate resolves where the next run begins: the forced override if set,
// otherwise the day after the persisted watermark, otherwise the configured
// initial start.
func (s *Scheduler) StartDate(ctx context.Context) (time.Time, error) {
	if !s.forcedStart.IsZero() {
		return s.forcedStart, nil
	}
	last, ok, err := s.store.Last(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}
	if !ok {
		return s.initialStart, nil
	}
	return midnight(last).AddDate(0, 0, 1), nil
}

// Days returns the ordered, finite sequence of days from start up to and
// including today. An empty slice means the harvest is already caught up.
func (s *Scheduler) Days(start time.Time) []time.Time {
	today := midnight(s.now())
	start = midnight(start)
	if start.After(today) {
		return nil
	}
	days := make([]time.Time, 0, int(today.Sub(start).Hours()/24)+1)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Confirm records that a day has been fully merged and advances the
// watermark past it.
func (s *Scheduler) Confirm(ctx context.Context, day time.Time) error {
	if err := s.store.Advance(ctx, midnight(day)); err != nil {
		return fmt.Errorf("advancing watermark to %s: %w", day.Format("02-01-2006"), err)
	}
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
