package model

import (
	"time"

	"github.com/google/uuid"
)

// IngestRequest is the request body for POST /ingest.
// Logs is required; events, segments and metadata are passed through unchanged.
type IngestRequest struct {
	RobotID   string         `json:"robot_id"`
	RunNumber int            `json:"run_number"`
	Logs      []RawLogRecord `json:"logs"`
	Events    []RunEvent     `json:"events,omitempty"`
	Segments  []RunSegment   `json:"segments,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	RunID    uuid.UUID `json:"run_id"`
	Format   RunFormat `json:"format"`
	LogCount int       `json:"log_count"`
}

// RunSummary is the list-view projection of a run.
type RunSummary struct {
	ID         uuid.UUID  `json:"id"`
	RobotID    string     `json:"robot_id"`
	RunNumber  int        `json:"run_number"`
	Format     RunFormat  `json:"format"`
	Analyzed   bool       `json:"analyzed"`
	LogCount   int        `json:"log_count"`
	EventCount int        `json:"event_count"`
	CreatedAt  time.Time  `json:"created_at"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}

// ClearRunsResponse is returned by DELETE /runs/clear.
type ClearRunsResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}

// APIResponse is the standard success envelope.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeExternalService = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
