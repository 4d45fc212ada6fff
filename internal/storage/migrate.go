package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/baires-data/boletin-pipeline/pkg/postgres"
)

//go:embed schema.sql
var schema string

// Migrate applies the pipeline schema. All statements are idempotent
// (CREATE IF NOT EXISTS), so it is safe to run on every startup.
func Migrate(ctx context.Context, db *postgres.Client) error {
	if _, err := db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
