package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for the two
// free-text columns an operator actually searches against: past
// failures (resolving a recurring bug class) and a user's own
// conversation history.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_failure_records_task_description_gin
		ON failure_records USING gin(to_tsvector('english', task_description))`)
	if err != nil {
		return fmt.Errorf("failed to create task_description GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_content_gin
		ON conversation_turns USING gin(to_tsvector('english', content))`)
	if err != nil {
		return fmt.Errorf("failed to create content GIN index: %w", err)
	}

	return nil
}
