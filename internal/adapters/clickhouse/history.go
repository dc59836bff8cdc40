package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RunRecord is one analytics run appended to history
type RunRecord struct {
	Operation  string
	Rows       int
	Duration   time.Duration
	Detail     string
	ExecutedAt time.Time
}

// HistoryWriter appends analytics run records to ClickHouse. Callers treat
// every write as best-effort.
type HistoryWriter struct {
	db *sqlx.DB
}

// NewHistoryWriter creates a history writer
func NewHistoryWriter(db *sqlx.DB) *HistoryWriter {
	return &HistoryWriter{db: db}
}

// Append inserts one run record
func (w *HistoryWriter) Append(ctx context.Context, rec RunRecord) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO analytics_runs
		(executed_at, operation, rows, duration_ms, detail)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.ExecutedAt,
		rec.Operation,
		rec.Rows,
		rec.Duration.Milliseconds(),
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append run record: %w", err)
	}
	return nil
}
