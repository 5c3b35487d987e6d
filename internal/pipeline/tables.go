// Package pipeline implements the run-log normalization and analysis pipeline:
// schema detection, normalization of the three historical log formats,
// run analysis (timeline, section times, issue detection) and path-segment
// reconstruction.
//
// The pipeline is purely computational: it takes an immutable snapshot of a
// run's stored data and returns a new result. No I/O.
package pipeline

// unknownName is the fallback for every table lookup. Lookups are total:
// an unknown code or id never fails, it resolves to this.
const unknownName = "Unknown"

// defaultEventNames maps legacy Arduino event codes to names.
func defaultEventNames() map[int]string {
	return map[int]string{
		1: "Start",
		2: "ZoneChange",
		3: "Shot",
		4: "Obstacle",
		5: "Stop",
		6: "Error",
	}
}

// defaultZoneNames maps legacy zone ids to field region names.
func defaultZoneNames() map[int]string {
	return map[int]string{
		0: "Start",
		1: "Red Zone",
		2: "Blue Zone",
		3: "Green Zone",
		4: "Center",
		5: "Unknown",
	}
}

// defaultSectionNames maps sensor/path-format section ids to names.
func defaultSectionNames() map[int]string {
	return map[int]string{
		1: "Red Path",
		2: "Ramp",
		3: "Green Path",
	}
}

// pauseAnnotation is the display annotation for a pause-causing action.
type pauseAnnotation struct {
	Emoji   string
	Message string
}

// defaultActionAnnotations maps segment action tags to their pause display.
func defaultActionAnnotations() map[string]pauseAnnotation {
	return map[string]pauseAnnotation{
		"pickup_box":     {Emoji: "📦", Message: "Picking Up Box"},
		"drop_box":       {Emoji: "📥", Message: "Dropping Box"},
		"shooting":       {Emoji: "🏀", Message: "Shooting Ball"},
		"avoid_obstacle": {Emoji: "⚠️", Message: "Avoiding Obstacle"},
	}
}
