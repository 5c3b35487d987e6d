// Package model defines the core domain types for the UTRA data-analysis backend.
//
// A Run is one recorded competition attempt: an ordered, immutable log
// sequence plus optional events, segments and free-form metadata. Logs are
// normalized at ingestion and never mutated afterwards; the only permitted
// mutation is attaching an AnalysisResult.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunFormat identifies which historical log schema a run was submitted in.
// Determined once from the first raw record and carried on the run; consumers
// dispatch on it instead of re-inspecting record fields.
type RunFormat string

const (
	// FormatEvent is the legacy Arduino event-code format
	// ({timestamp, event, data}).
	FormatEvent RunFormat = "event"
	// FormatSensor is the sensor/section format
	// ({timestamp, section_id, checkpoint_success, ultrasonic_distance, claw_status}).
	FormatSensor RunFormat = "sensor"
	// FormatPath is the x/y path format: all sensor fields plus
	// {x, y, segment_id, segment_index}.
	FormatPath RunFormat = "path"
)

// RawLogRecord is an opaque log record exactly as submitted by a client.
// Shape varies by format; immutable once received.
type RawLogRecord map[string]any

// NormalizedLogRecord is a raw record mapped onto a consistent field set.
// Which fields are meaningful depends on the owning run's format; numeric
// fields missing from the raw record default to zero, names to "Unknown".
type NormalizedLogRecord struct {
	TimestampMs int64 `json:"timestamp_ms"`

	// Event format.
	EventCode int    `json:"event_code,omitempty"`
	EventName string `json:"event_name,omitempty"`
	ZoneID    int    `json:"zone_id,omitempty"`
	ZoneName  string `json:"zone_name,omitempty"`

	// Sensor and path formats.
	SectionID          int     `json:"section_id,omitempty"`
	SectionName        string  `json:"section_name,omitempty"`
	CheckpointSuccess  int     `json:"checkpoint_success,omitempty"`
	UltrasonicDistance float64 `json:"ultrasonic_distance,omitempty"`
	ClawStatus         float64 `json:"claw_status,omitempty"`

	// Path format only.
	X            float64 `json:"x,omitempty"`
	Y            float64 `json:"y,omitempty"`
	SegmentID    string  `json:"segment_id,omitempty"`
	SegmentIndex int     `json:"segment_index,omitempty"`

	// Raw is the original record, preserved for the event and sensor formats.
	Raw RawLogRecord `json:"raw,omitempty"`
}

// Point is an x/y position on the competition field.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RunEvent is a timestamped semantic event submitted alongside path-format
// logs (pickups, drops, obstacle avoidance, stuck detection, start/end).
type RunEvent struct {
	TimestampMs   int64  `json:"timestamp"`
	EventType     string `json:"event_type"`
	Message       string `json:"message,omitempty"`
	SegmentID     string `json:"segment_id,omitempty"`
	Position      *Point `json:"position,omitempty"`
	PauseDuration int64  `json:"pause_duration,omitempty"`
}

// RunSegment records one traversal of a path segment with authoritative
// timing, as reported by the robot.
type RunSegment struct {
	SegmentID    string     `json:"segment_id"`
	SegmentIndex int        `json:"segment_index"`
	StartPos     [2]float64 `json:"start_pos"`
	EndPos       [2]float64 `json:"end_pos"`
	StartTimeMs  int64      `json:"start_time"`
	EndTimeMs    int64      `json:"end_time"`
	DurationMs   int64      `json:"duration"`
	Action       string     `json:"action,omitempty"`
}

// Run is one recorded attempt by a robot.
type Run struct {
	ID         uuid.UUID             `json:"id"`
	RobotID    string                `json:"robot_id"`
	RunNumber  int                   `json:"run_number"`
	Format     RunFormat             `json:"format"`
	Logs       []NormalizedLogRecord `json:"logs"`
	Events     []RunEvent            `json:"events,omitempty"`
	Segments   []RunSegment          `json:"segments,omitempty"`
	Metadata   map[string]any        `json:"metadata"`
	Analyzed   bool                  `json:"analyzed"`
	Analysis   *AnalysisResult       `json:"analysis,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	AnalyzedAt *time.Time            `json:"analyzed_at,omitempty"`
}

// TelemetryReading is a live (non-run) sensor reading ingested outside the
// run-analysis pipeline.
type TelemetryReading struct {
	ID         uuid.UUID      `json:"id"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"received_at"`
}
