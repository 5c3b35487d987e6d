package pipeline

import (
	"math"

	"github.com/matthewgwang/utra-da/internal/model"
)

// defaultPauseMs is the synthesized pause duration for segments that carry an
// action tag but have no matching recorded event.
const defaultPauseMs = 1500

// defaultPathDef is the demonstration path shown for runs without recorded
// path data: the 22 field segments in traversal order with their actions.
// Coordinates are field units matching the robot's odometry frame.
var defaultPathDef = []struct {
	id     string
	start  [2]float64
	end    [2]float64
	action string
}{
	{"s1", [2]float64{0, 0}, [2]float64{0, -600}, ""},
	{"s2", [2]float64{0, -600}, [2]float64{150, -1125}, "pickup_box"},
	{"s3", [2]float64{150, -1125}, [2]float64{300, -1350}, ""},
	{"s4", [2]float64{300, -1350}, [2]float64{600, -1575}, ""},
	{"s5", [2]float64{600, -1575}, [2]float64{525, -1800}, "shooting"},
	{"s6", [2]float64{525, -1800}, [2]float64{375, -1650}, "drop_box"},
	{"s7", [2]float64{375, -1650}, [2]float64{150, -1125}, ""},
	{"s8", [2]float64{150, -1125}, [2]float64{0, -600}, ""},
	{"s9", [2]float64{0, -600}, [2]float64{-120, -825}, "pickup_box"},
	{"s10", [2]float64{-120, -825}, [2]float64{-195, -975}, ""},
	{"s11", [2]float64{-195, -975}, [2]float64{-300, -1125}, ""},
	{"s12", [2]float64{-300, -1125}, [2]float64{-525, -975}, ""},
	{"s13", [2]float64{-525, -975}, [2]float64{-675, -1200}, ""},
	{"s14", [2]float64{-675, -1200}, [2]float64{-600, -1650}, "avoid_obstacle"},
	{"s15", [2]float64{-600, -1650}, [2]float64{-630, -1695}, ""},
	{"s16", [2]float64{-630, -1695}, [2]float64{-900, -2100}, ""},
	{"s17", [2]float64{-900, -2100}, [2]float64{-975, -1950}, ""},
	{"s18", [2]float64{-975, -1950}, [2]float64{-1050, -1725}, ""},
	{"s19", [2]float64{-1050, -1725}, [2]float64{-975, -1575}, "avoid_obstacle"},
	{"s20", [2]float64{-975, -1575}, [2]float64{-900, -1125}, "drop_box"},
	{"s21", [2]float64{-900, -1125}, [2]float64{-825, -825}, ""},
	{"s22", [2]float64{-825, -825}, [2]float64{0, -600}, ""},
}

// PathGenerator reconstructs animatable path segments from a run's stored
// segment and event data. Safe for concurrent use.
type PathGenerator struct {
	annotations map[string]pauseAnnotation
	defaultPath []model.PathSegment
}

// NewPathGenerator creates a PathGenerator with the standard action table
// and default demonstration path.
func NewPathGenerator() *PathGenerator {
	g := &PathGenerator{annotations: defaultActionAnnotations()}
	g.defaultPath = g.buildDefaultPath()
	return g
}

// Segments returns the ordered path segments for a run. For path-format runs
// with stored segments it uses the recorded per-segment timing and attaches
// pause annotations from matching events (or synthesizes one from the
// segment's action tag). Any other run gets the fixed default demonstration
// path, a deliberate fallback for live/simulated display, not an error.
func (g *PathGenerator) Segments(run *model.Run) []model.PathSegment {
	if run.Format != model.FormatPath || len(run.Segments) == 0 {
		return g.DefaultPath()
	}

	segments := make([]model.PathSegment, 0, len(run.Segments))
	for _, stored := range run.Segments {
		seg := model.PathSegment{
			ID:         stored.SegmentID,
			Start:      model.Point{X: stored.StartPos[0], Y: stored.StartPos[1]},
			End:        model.Point{X: stored.EndPos[0], Y: stored.EndPos[1]},
			DurationMs: stored.DurationMs,
		}

		if event := matchEvent(run.Events, stored.SegmentID); event != nil && event.PauseDuration > 0 {
			seg.PauseDurationMs = event.PauseDuration
			seg.PauseMessage = g.pauseMessage(event.EventType)
		} else if stored.Action != "" {
			seg.PauseDurationMs = defaultPauseMs
			seg.PauseMessage = g.pauseMessage(stored.Action)
		}

		segments = append(segments, seg)
	}
	return segments
}

// DefaultPath returns a copy of the fixed 22-segment demonstration path.
func (g *PathGenerator) DefaultPath() []model.PathSegment {
	out := make([]model.PathSegment, len(g.defaultPath))
	copy(out, g.defaultPath)
	return out
}

// matchEvent finds the first event recorded for a segment, excluding the
// synthetic start/end markers the robot emits around the run.
func matchEvent(events []model.RunEvent, segmentID string) *model.RunEvent {
	for i := range events {
		e := &events[i]
		if e.EventType == "start" || e.EventType == "end" {
			continue
		}
		if e.SegmentID == segmentID {
			return e
		}
	}
	return nil
}

func (g *PathGenerator) pauseMessage(action string) string {
	if a, ok := g.annotations[action]; ok {
		return a.Emoji + " " + a.Message
	}
	return "⏸️ " + action
}

// buildDefaultPath derives segment durations from geometry: 5 ms per field
// unit with a 500 ms floor, the same base rule the robots use.
func (g *PathGenerator) buildDefaultPath() []model.PathSegment {
	segments := make([]model.PathSegment, 0, len(defaultPathDef))
	for _, def := range defaultPathDef {
		distance := math.Hypot(def.end[0]-def.start[0], def.end[1]-def.start[1])
		duration := int64(distance * 5)
		if duration < 500 {
			duration = 500
		}

		seg := model.PathSegment{
			ID:         def.id,
			Start:      model.Point{X: def.start[0], Y: def.start[1]},
			End:        model.Point{X: def.end[0], Y: def.end[1]},
			DurationMs: duration,
		}
		if def.action != "" {
			seg.PauseDurationMs = defaultPauseMs
			seg.PauseMessage = g.pauseMessage(def.action)
		}
		segments = append(segments, seg)
	}
	return segments
}
