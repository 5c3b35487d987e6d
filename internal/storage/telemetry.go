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

// InsertTelemetry stores a live sensor reading. Append-only.
func (db *DB) InsertTelemetry(ctx context.Context, payload map[string]any) (model.TelemetryReading, error) {
	reading := model.TelemetryReading{
		ID:         uuid.New(),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	if reading.Payload == nil {
		reading.Payload = map[string]any{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO telemetry (id, payload, received_at) VALUES ($1, $2, $3)`,
		reading.ID, reading.Payload, reading.ReceivedAt,
	)
	if err != nil {
		return model.TelemetryReading{}, fmt.Errorf("storage: insert telemetry: %w", err)
	}
	return reading, nil
}

// LatestTelemetry returns the most recent reading.
func (db *DB) LatestTelemetry(ctx context.Context) (model.TelemetryReading, error) {
	var reading model.TelemetryReading
	err := db.pool.QueryRow(ctx,
		`SELECT id, payload, received_at FROM telemetry ORDER BY received_at DESC LIMIT 1`,
	).Scan(&reading.ID, &reading.Payload, &reading.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TelemetryReading{}, fmt.Errorf("storage: telemetry: %w", ErrNotFound)
		}
		return model.TelemetryReading{}, fmt.Errorf("storage: latest telemetry: %w", err)
	}
	return reading, nil
}
