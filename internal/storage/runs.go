package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matthewgwang/utra-da/internal/model"
)

// CreateRun inserts a new run document and returns it.
func (db *DB) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}
	// JSONB columns must hold arrays, not NULL: the list projection uses
	// jsonb_array_length.
	if run.Logs == nil {
		run.Logs = []model.NormalizedLogRecord{}
	}
	if run.Events == nil {
		run.Events = []model.RunEvent{}
	}
	if run.Segments == nil {
		run.Segments = []model.RunSegment{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO runs (id, robot_id, run_number, format, logs, raw_events, segments, metadata, analyzed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.RobotID, run.RunNumber, string(run.Format),
		run.Logs, run.Events, run.Segments, run.Metadata, run.Analyzed, run.CreatedAt,
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("storage: create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a full run document by ID.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (model.Run, error) {
	var run model.Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, robot_id, run_number, format, logs, raw_events, segments, metadata,
		        analyzed, analysis, created_at, analyzed_at
		 FROM runs WHERE id = $1`, id,
	).Scan(
		&run.ID, &run.RobotID, &run.RunNumber, &run.Format, &run.Logs, &run.Events,
		&run.Segments, &run.Metadata, &run.Analyzed, &run.Analysis, &run.CreatedAt, &run.AnalyzedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("storage: run %s: %w", id, ErrNotFound)
		}
		return model.Run{}, fmt.Errorf("storage: get run: %w", err)
	}
	return run, nil
}

// ListRuns returns run summaries, newest first.
func (db *DB) ListRuns(ctx context.Context, limit, offset int) ([]model.RunSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count runs: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, robot_id, run_number, format, analyzed,
		        jsonb_array_length(logs), jsonb_array_length(raw_events),
		        created_at, analyzed_at
		 FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.RunSummary, 0, limit)
	for rows.Next() {
		var s model.RunSummary
		if err := rows.Scan(
			&s.ID, &s.RobotID, &s.RunNumber, &s.Format, &s.Analyzed,
			&s.LogCount, &s.EventCount, &s.CreatedAt, &s.AnalyzedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("storage: scan run summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// SaveAnalysis attaches an analysis result to a run. The run's logs stay
// immutable; only the analysis fields change. Last write wins under
// concurrent re-analysis.
func (db *DB) SaveAnalysis(ctx context.Context, id uuid.UUID, analysis model.AnalysisResult) (time.Time, error) {
	now := time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE runs SET analysis = $1, analyzed = TRUE, analyzed_at = $2 WHERE id = $3`,
		analysis, now, id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: save analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return time.Time{}, fmt.Errorf("storage: run %s: %w", id, ErrNotFound)
	}
	return now, nil
}

// ClearRuns deletes all runs and returns the count removed.
func (db *DB) ClearRuns(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("storage: clear runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
