// Package ledger tracks extraction failures pending reconciliation. Every
// failed fetch is recorded once per (identifier, kind); when a later run
// fetches the same identifier successfully, the entry moves to a separate
// corrected-entries log with its original failure metadata preserved.
// Both logs are queryable artifacts, not just log lines.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/postgres"
)

// Entry is one open ledger entry: a failing identifier (bulletin date or
// norm id), the failure kind, and detail.
type Entry struct {
	Identifier string    `json:"identifier"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	FirstSeen  time.Time `json:"first_seen"`
}

// Corrected is a reconciled entry in the corrected-entries log.
type Corrected struct {
	Entry
	ResolvedAt time.Time `json:"resolved_at"`
}

// Ledger is the failure-tracking contract the harvest runner depends on.
type Ledger interface {
	// RecordFailure appends an entry unless an unresolved one with the
	// same identifier and kind already exists.
	RecordFailure(ctx context.Context, identifier, kind, detail string) error
	// Reconcile resolves every open entry for the identifier, moving them
	// to the corrected log. It returns the entries it resolved; an
	// identifier with no open entries resolves to nil.
	Reconcile(ctx context.Context, identifier string) ([]Entry, error)
	// Open returns all unresolved entries.
	Open(ctx context.Context) ([]Entry, error)
	// CorrectedLog returns the reconciled entries.
	CorrectedLog(ctx context.Context) ([]Corrected, error)
}

// PostgresLedger stores the ledger in the extraction_errors and
// extraction_errors_corrected tables.
type PostgresLedger struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgres(db *postgres.Client) *PostgresLedger {
	return &PostgresLedger{
		db:     db,
		logger: logger.WithComponent("error-ledger"),
	}
}

func (l *PostgresLedger) RecordFailure(ctx context.Context, identifier, kind, detail string) error {
	// DO NOTHING keeps the first-seen timestamp and detail of the original
	// failure when the same identifier fails again.
	_, err := l.db.DB.ExecContext(ctx, `
		INSERT INTO extraction_errors (identifier, kind, detail, first_seen)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (identifier, kind) DO NOTHING`,
		identifier, kind, detail)
	if err != nil {
		return fmt.Errorf("recording failure for %s: %w", identifier, err)
	}
	l.logger.Warn("extraction failure ledgered", "identifier", identifier, "kind", kind, "detail", detail)
	return nil
}

func (l *PostgresLedger) Reconcile(ctx context.Context, identifier string) ([]Entry, error) {
	var resolved []Entry
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT identifier, kind, detail, first_seen
			FROM extraction_errors WHERE identifier = $1
			FOR UPDATE`, identifier)
		if err != nil {
			return fmt.Errorf("selecting open entries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.Identifier, &e.Kind, &e.Detail, &e.FirstSeen); err != nil {
				return fmt.Errorf("scanning ledger entry: %w", err)
			}
			resolved = append(resolved, e)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(resolved) == 0 {
			return nil
		}
		for _, e := range resolved {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO extraction_errors_corrected (identifier, kind, detail, first_seen, resolved_at)
				VALUES ($1, $2, $3, $4, now())`,
				e.Identifier, e.Kind, e.Detail, e.FirstSeen); err != nil {
				return fmt.Errorf("migrating entry to corrected log: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM extraction_errors WHERE identifier = $1`, identifier); err != nil {
			return fmt.Errorf("clearing resolved entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range resolved {
		l.logger.Info("ledger entry reconciled", "identifier", e.Identifier, "kind", e.Kind)
	}
	return resolved, nil
}

func (l *PostgresLedger) Open(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.DB.QueryContext(ctx, `
		SELECT identifier, kind, detail, first_seen
		FROM extraction_errors ORDER BY first_seen, identifier`)
	if err != nil {
		return nil, fmt.Errorf("querying open ledger: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Identifier, &e.Kind, &e.Detail, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) CorrectedLog(ctx context.Context) ([]Corrected, error) {
	rows, err := l.db.DB.QueryContext(ctx, `
		SELECT identifier, kind, detail, first_seen, resolved_at
		FROM extraction_errors_corrected ORDER BY resolved_at, identifier`)
	if err != nil {
		return nil, fmt.Errorf("querying corrected log: %w", err)
	}
	defer rows.Close()
	var out []Corrected
	for rows.Next() {
		var c Corrected
		if err := rows.Scan(&c.Identifier, &c.Kind, &c.Detail, &c.FirstSeen, &c.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scanning corrected entry: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MemoryLedger is an in-process Ledger for tests and dry runs.
type MemoryLedger struct {
	mu        sync.Mutex
	open      map[string]Entry // keyed by identifier+"\x00"+kind
	corrected []Corrected
	now       func() time.Time
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		open: make(map[string]Entry),
		now:  time.Now,
	}
}

func (l *MemoryLedger) RecordFailure(ctx context.Context, identifier, kind, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := identifier + "\x00" + kind
	if _, exists := l.open[key]; exists {
		return nil
	}
	l.open[key] = Entry{Identifier: identifier, Kind: kind, Detail: detail, FirstSeen: l.now()}
	return nil
}

func (l *MemoryLedger) Reconcile(ctx context.Context, identifier string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var resolved []Entry
	for key, e := range l.open {
		if e.Identifier != identifier {
			continue
		}
		resolved = append(resolved, e)
		l.corrected = append(l.corrected, Corrected{Entry: e, ResolvedAt: l.now()})
		delete(l.open, key)
	}
	return resolved, nil
}

func (l *MemoryLedger) Open(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.open))
	for _, e := range l.open {
		out = append(out, e)
	}
	return out, nil
}

func (l *MemoryLedger) CorrectedLog(ctx context.Context) ([]Corrected, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Corrected, len(l.corrected))
	copy(out, l.corrected)
	return out, nil
}
