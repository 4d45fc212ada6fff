package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/postgres"
)

// PostgresStore implements Store on top of a PostgreSQL database. Merge is
// an INSERT ... ON CONFLICT DO UPDATE inside one transaction; Overwrite is
// a DELETE plus bulk insert inside one transaction. Atomicity comes from
// the transaction; uniqueness from the match-key primary key.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgres(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.WithComponent("postgres-store"),
	}
}

func (s *PostgresStore) Merge(ctx context.Context, ds Dataset, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query := buildMergeQuery(ds)
	var written int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing merge for %s: %w", ds.Table, err)
		}
		defer stmt.Close()
		for _, row := range rows {
			args, err := rowArgs(ds, row)
			if err != nil {
				return err
			}
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("merging row into %s: %w", ds.Table, err)
			}
			n, _ := res.RowsAffected()
			written += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("merge complete", "dataset", ds.Table, "rows_in", len(rows), "rows_written", written)
	return written, nil
}

func (s *PostgresStore) Overwrite(ctx context.Context, ds Dataset, rows []Row) (int64, error) {
	query := buildInsertQuery(ds)
	var written int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", ds.Table)); err != nil {
			return fmt.Errorf("clearing %s: %w", ds.Table, err)
		}
		if len(rows) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing insert for %s: %w", ds.Table, err)
		}
		defer stmt.Close()
		for _, row := range rows {
			args, err := rowArgs(ds, row)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("inserting row into %s: %w", ds.Table, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("overwrite complete", "dataset", ds.Table, "rows", written)
	return written, nil
}

// buildMergeQuery renders the upsert statement for a dataset. With Recency
// set, the update only applies when the incoming extraction timestamp is
// not older than the stored one.
func buildMergeQuery(ds Dataset) string {
	placeholders := make([]string, len(ds.Columns))
	updates := make([]string, 0, len(ds.Columns))
	for i, col := range ds.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != ds.MatchKey {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		ds.Table,
		strings.Join(ds.Columns, ", "),
		strings.Join(placeholders, ", "),
		ds.MatchKey,
		strings.Join(updates, ", "),
	)
	if ds.Recency {
		q += fmt.Sprintf(" WHERE %s.extracted_at <= EXCLUDED.extracted_at", ds.Table)
	}
	return q
}

func buildInsertQuery(ds Dataset) string {
	placeholders := make([]string, len(ds.Columns))
	for i := range ds.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ds.Table,
		strings.Join(ds.Columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

func rowArgs(ds Dataset, row Row) ([]any, error) {
	args := make([]any, len(ds.Columns))
	for i, col := range ds.Columns {
		v, ok := row[col]
		if !ok {
			return nil, fmt.Errorf("row for %s missing column %s", ds.Table, col)
		}
		args[i] = v
	}
	return args, nil
}
