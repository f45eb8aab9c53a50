package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on case descriptions and
// the threat classification text produced by the correlation stage.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_cases_description_gin
		ON cases USING gin(to_tsvector('english', COALESCE(description, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create case description GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_cases_threat_classification_gin
		ON cases USING gin(to_tsvector('english', COALESCE(threat_classification, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create threat_classification GIN index: %w", err)
	}

	return nil
}
