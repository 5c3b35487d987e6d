package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewgwang/utra-da/internal/model"
)

func TestDefaultPath(t *testing.T) {
	g := NewPathGenerator()
	path := g.DefaultPath()

	require.Len(t, path, 22)
	assert.Equal(t, "s1", path[0].ID)
	assert.Equal(t, "s22", path[21].ID)

	// Segments chain: each starts where the previous one ended.
	for i := 1; i < len(path); i++ {
		assert.Equal(t, path[i-1].End, path[i].Start, "segment %s", path[i].ID)
	}

	// s1: 600 units straight down, 5 ms per unit.
	assert.Equal(t, model.Point{X: 0, Y: 0}, path[0].Start)
	assert.Equal(t, model.Point{X: 0, Y: -600}, path[0].End)
	assert.Equal(t, int64(3000), path[0].DurationMs)
	assert.Zero(t, path[0].PauseDurationMs)

	// s2 carries a pickup action.
	assert.Equal(t, int64(defaultPauseMs), path[1].PauseDurationMs)
	assert.Equal(t, "📦 Picking Up Box", path[1].PauseMessage)

	// s15 is short (54 units) so the duration floor applies.
	assert.Equal(t, "s15", path[14].ID)
	assert.Equal(t, int64(500), path[14].DurationMs)
}

func TestDefaultPathReturnsCopy(t *testing.T) {
	g := NewPathGenerator()

	first := g.DefaultPath()
	first[0].ID = "mutated"
	first[0].DurationMs = -1

	second := g.DefaultPath()
	assert.Equal(t, "s1", second[0].ID)
	assert.Equal(t, int64(3000), second[0].DurationMs)
}

func TestSegmentsFallsBackToDefault(t *testing.T) {
	g := NewPathGenerator()

	tests := []struct {
		name string
		run  *model.Run
	}{
		{"event format", &model.Run{Format: model.FormatEvent}},
		{"sensor format", &model.Run{Format: model.FormatSensor}},
		{"path format without segments", &model.Run{Format: model.FormatPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, g.DefaultPath(), g.Segments(tt.run))
		})
	}
}

func TestSegmentsFromStoredRun(t *testing.T) {
	g := NewPathGenerator()

	run := &model.Run{
		Format: model.FormatPath,
		Segments: []model.RunSegment{
			{
				SegmentID:  "s1",
				StartPos:   [2]float64{0, 0},
				EndPos:     [2]float64{0, -600},
				DurationMs: 2750,
			},
			{
				SegmentID:  "s2",
				StartPos:   [2]float64{0, -600},
				EndPos:     [2]float64{150, -1125},
				DurationMs: 3100,
				Action:     "pickup_box",
			},
			{
				SegmentID:  "s3",
				StartPos:   [2]float64{150, -1125},
				EndPos:     [2]float64{300, -1350},
				DurationMs: 1400,
				Action:     "shooting",
			},
		},
		Events: []model.RunEvent{
			// Start/end markers never match segments.
			{EventType: "start", SegmentID: "s1"},
			{EventType: "pickup_box", SegmentID: "s2", PauseDuration: 2200},
			{EventType: "end", SegmentID: "s3"},
		},
	}

	segments := g.Segments(run)
	require.Len(t, segments, 3)

	// Plain segment, no pause.
	assert.Equal(t, "s1", segments[0].ID)
	assert.Equal(t, model.Point{X: 0, Y: -600}, segments[0].End)
	assert.Equal(t, int64(2750), segments[0].DurationMs)
	assert.Zero(t, segments[0].PauseDurationMs)
	assert.Empty(t, segments[0].PauseMessage)

	// Recorded event pause takes precedence over the action default.
	assert.Equal(t, int64(2200), segments[1].PauseDurationMs)
	assert.Equal(t, "📦 Picking Up Box", segments[1].PauseMessage)

	// No matching event: the action tag synthesizes the standard pause.
	assert.Equal(t, int64(defaultPauseMs), segments[2].PauseDurationMs)
	assert.Equal(t, "🏀 Shooting Ball", segments[2].PauseMessage)
}

func TestSegmentsUnknownActionMessage(t *testing.T) {
	g := NewPathGenerator()

	run := &model.Run{
		Format: model.FormatPath,
		Segments: []model.RunSegment{
			{SegmentID: "s1", DurationMs: 900, Action: "calibrate"},
		},
	}

	segments := g.Segments(run)
	require.Len(t, segments, 1)
	assert.Equal(t, "⏸️ calibrate", segments[0].PauseMessage)
	assert.Equal(t, int64(defaultPauseMs), segments[0].PauseDurationMs)
}
