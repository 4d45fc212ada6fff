package scheduler

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartDateFirstRunUsesInitialStart(t *testing.T) {
	s := New(NewMemoryWatermark(), date(2024, 1, 1))
	start, err := s.StartDate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(date(2024, 1, 1)) {
		t.Errorf("start = %s, want 01-01-2024", start)
	}
}

func TestStartDateResumesAfterWatermark(t *testing.T) {
	ctx := context.Background()
	wm := NewMemoryWatermark()
	s := New(wm, date(2024, 1, 1))
	if err := s.Confirm(ctx, date(2024, 3, 14)); err != nil {
		t.Fatal(err)
	}
	start, err := s.StartDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(date(2024, 3, 15)) {
		t.Errorf("start = %s, want day after watermark", start)
	}
}

func TestStartDateForcedOverride(t *testing.T) {
	ctx := context.Background()
	wm := NewMemoryWatermark()
	s := New(wm, date(2024, 1, 1), WithForcedStart(date(2024, 2, 1)))
	if err := s.Confirm(ctx, date(2024, 6, 30)); err != nil {
		t.Fatal(err)
	}
	start, err := s.StartDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(date(2024, 2, 1)) {
		t.Errorf("start = %s, want the forced date regardless of watermark", start)
	}
}

func TestDaysInclusiveThroughToday(t *testing.T) {
	s := New(NewMemoryWatermark(), date(2024, 1, 1),
		WithClock(fixedClock(date(2025, 5, 3).Add(15*time.Hour))))
	days := s.Days(date(2025, 5, 1))
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3: %v", len(days), days)
	}
	if !days[0].Equal(date(2025, 5, 1)) || !days[2].Equal(date(2025, 5, 3)) {
		t.Errorf("days = %v", days)
	}
}

func TestDaysEmptyWhenCaughtUp(t *testing.T) {
	s := New(NewMemoryWatermark(), date(2024, 1, 1),
		WithClock(fixedClock(date(2025, 5, 3))))
	if days := s.Days(date(2025, 5, 4)); len(days) != 0 {
		t.Errorf("got %v, want no days", days)
	}
}

func TestConfirmAdvancesWatermarkMonotonically(t *testing.T) {
	ctx := context.Background()
	wm := NewMemoryWatermark()
	s := New(wm, date(2024, 1, 1))
	if err := s.Confirm(ctx, date(2024, 5, 10)); err != nil {
		t.Fatal(err)
	}
	// A stale confirm must not move the watermark backward.
	if err := s.Confirm(ctx, date(2024, 5, 8)); err != nil {
		t.Fatal(err)
	}
	last, ok, err := wm.Last(ctx)
	if err != nil || !ok {
		t.Fatalf("Last: ok=%v err=%v", ok, err)
	}
	if !last.Equal(date(2024, 5, 10)) {
		t.Errorf("watermark = %s, want 10-05-2024", last)
	}
}
