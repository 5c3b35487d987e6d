package model

// TimelineEntry is one notable transition in a run's timeline.
type TimelineEntry struct {
	TimeMs int64  `json:"time_ms"`
	Event  string `json:"event"`
}

// AnalysisResult is the derived analysis of a run. It is recomputable from
// the owning run's stored data and never authoritative.
type AnalysisResult struct {
	Timeline        []TimelineEntry  `json:"timeline,omitempty"`
	SectionSequence []string         `json:"section_sequence,omitempty"`
	SectionTimes    map[string]int64 `json:"section_times,omitempty"`
	Issues          []string         `json:"issues"`
	CheckpointRate  *float64         `json:"checkpoint_rate,omitempty"`
	UltrasonicAvg   *float64         `json:"ultrasonic_avg,omitempty"`

	// Coaching output: either the external model's free text plus usage
	// metadata, or a deterministic mock when no credential is configured.
	Summary     string         `json:"summary,omitempty"`
	RawResponse string         `json:"raw_response,omitempty"`
	Score       *float64       `json:"score,omitempty"`
	Model       string         `json:"model,omitempty"`
	Usage       map[string]any `json:"usage,omitempty"`
}

// PathSegment is one animatable leg of a run's reconstructed path.
type PathSegment struct {
	ID              string `json:"id"`
	Start           Point  `json:"start"`
	End             Point  `json:"end"`
	DurationMs      int64  `json:"duration_ms"`
	PauseDurationMs int64  `json:"pause_duration_ms,omitempty"`
	PauseMessage    string `json:"pause_message,omitempty"`
}
