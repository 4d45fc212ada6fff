package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/baires-data/boletin-pipeline/pkg/postgres"
)

// PostgresWatermark persists the watermark in the single-row
// harvest_watermark table.
type PostgresWatermark struct {
	db *postgres.Client
}

func NewPostgresWatermark(db *postgres.Client) *PostgresWatermark {
	return &PostgresWatermark{db: db}
}

func (w *PostgresWatermark) Last(ctx context.Context) (time.Time, bool, error) {
	var last time.Time
	err := w.db.DB.QueryRowContext(ctx,
		`SELECT last_date FROM harvest_watermark WHERE id = 1`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading watermark: %w", err)
	}
	return last, true, nil
}

func (w *PostgresWatermark) Advance(ctx context.Context, day time.Time) error {
	// GREATEST keeps the watermark monotonic even if days are re-run.
	_, err := w.db.DB.ExecContext(ctx, `
		INSERT INTO harvest_watermark (id, last_date, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET last_date = GREATEST(harvest_watermark.last_date, EXCLUDED.last_date),
		    updated_at = now()`, day)
	if err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}
	return nil
}

// MemoryWatermark is an in-process WatermarkStore for tests and dry runs.
type MemoryWatermark struct {
	mu   sync.Mutex
	last time.Time
	set  bool
}

func NewMemoryWatermark() *MemoryWatermark {
	return &MemoryWatermark{}
}

func (w *MemoryWatermark) Last(ctx context.Context) (time.Time, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.set, nil
}

func (w *MemoryWatermark) Advance(ctx context.Context, day time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.set || day.After(w.last) {
		w.last = day
		w.set = true
	}
	return nil
}
