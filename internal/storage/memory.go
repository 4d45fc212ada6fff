package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and dry runs. It honors the
// same contract as the PostgreSQL implementation: at most one live row per
// match key, recency-guarded merges, wholesale overwrite.
type Memory struct {
	mu     sync.Mutex
	tables map[string]map[string]Row
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string]Row)}
}

func (m *Memory) Merge(ctx context.Context, ds Dataset, rows []Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.tables[ds.Table]
	if table == nil {
		table = make(map[string]Row)
		m.tables[ds.Table] = table
	}
	var written int64
	for _, row := range rows {
		if _, err := rowArgs(ds, row); err != nil {
			return written, err
		}
		key := fmt.Sprint(row[ds.MatchKey])
		if existing, ok := table[key]; ok && ds.Recency {
			prev, _ := existing["extracted_at"].(time.Time)
			next, _ := row["extracted_at"].(time.Time)
			if next.Before(prev) {
				continue
			}
		}
		table[key] = row
		written++
	}
	return written, nil
}

func (m *Memory) Overwrite(ctx context.Context, ds Dataset, rows []Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Overwrite targets may repeat the match key (licitaciones_empresas has
	// one row per company per tender), so the snapshot is keyed positionally.
	table := make(map[string]Row, len(rows))
	for i, row := range rows {
		if _, err := rowArgs(ds, row); err != nil {
			return 0, err
		}
		table[fmt.Sprintf("%06d", i)] = row
	}
	m.tables[ds.Table] = table
	return int64(len(rows)), nil
}

// Rows returns a snapshot of the live rows for a table.
func (m *Memory) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]Row, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		rows = append(rows, row)
	}
	return rows
}

// Count returns the number of live rows in a table.
func (m *Memory) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}
