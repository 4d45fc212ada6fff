// Package storage defines the merge/upsert contract the pipeline requires
// from its storage engine, plus the PostgreSQL implementation. The core
// never assumes more than the two operations below: Merge (upsert by match
// key, partition-preserving, recency-guarded) and Overwrite (atomic
// wholesale replace, used for full-refresh sources and Silver outputs).
package storage

import "context"

// Dataset describes one stored table: its match key for deduplication, the
// declared partition column, and the column set rows must provide.
type Dataset struct {
	Table        string
	MatchKey     string
	PartitionKey string
	Columns      []string
	// Recency guards merges with an extracted_at comparison: an incoming
	// row older than the stored one is ignored.
	Recency bool
}

// Row maps column names to values. Every column in Dataset.Columns must be
// present.
type Row map[string]any

// Store is the storage collaborator contract. Both operations are atomic
// with respect to partial failure: a crash mid-write never leaves duplicate
// keys or both versions of a row visible.
type Store interface {
	// Merge upserts rows into the dataset, replacing any existing row with
	// the same match key and leaving non-matching rows untouched. Returns
	// the number of rows written.
	Merge(ctx context.Context, ds Dataset, rows []Row) (int64, error)
	// Overwrite atomically replaces the dataset's entire contents.
	Overwrite(ctx context.Context, ds Dataset, rows []Row) (int64, error)
}
