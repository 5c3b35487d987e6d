package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/matthewgwang/utra-da/internal/model"
)

// Thresholds for issue detection.
const (
	// obstacleDistanceCm: an ultrasonic reading below this counts as an
	// obstacle when the preceding reading was at or above it.
	obstacleDistanceCm = 15.0
	// clawClosedAngle: claw angles at or above this count as closed.
	clawClosedAngle = 90.0
	// longSectionMs: sensor/path sections occupied longer than this are flagged.
	longSectionMs = 120_000
	// stuckZoneMs: event-format zones occupied longer than this are flagged.
	stuckZoneMs = 10_000
	// lowCheckpointRate: checkpoint success percentages below this are flagged.
	lowCheckpointRate = 60.0
	// oscillationThreshold: A→B→A patterns must exceed this count to be flagged.
	oscillationThreshold = 2
	// noReadingDistanceCm stands in for a missing preceding ultrasonic
	// reading, far enough to never register as an obstacle edge.
	noReadingDistanceCm = 50.0
)

// Analyze computes an AnalysisResult from a run's normalized logs. The
// strategy is selected by format: sensor and path runs get boundary-based
// section accounting, a timeline and sensor metrics; legacy event runs get
// record-adjacency zone accounting and oscillation detection.
//
// The two strategies attribute time in opposite directions (sensor credits
// the interval preceding a boundary, event the interval following a
// ZoneChange). The asymmetry is inherited from the recorded data; unifying it
// would change analysis output for existing runs.
//
// An empty log sequence yields an empty result, never an error.
func Analyze(format model.RunFormat, logs []model.NormalizedLogRecord) model.AnalysisResult {
	if format == model.FormatEvent {
		return analyzeEvent(logs)
	}
	return analyzeSensor(logs)
}

// sensorAcc is the accumulator for the sensor/path fold. Tracking the
// previous section, claw angle and ultrasonic reading makes every timeline
// rule an edge detection on consecutive records.
type sensorAcc struct {
	timeline     []model.TimelineEntry
	sequence     []string
	sectionOrder []string // first-seen order, for deterministic issue output
	times        map[string]int64

	currentSection string
	enteredAt      int64
	prevClaw       float64
	prevDistance   float64

	checkpointHits  int
	checkpointTotal int
	distanceSum     float64
	distanceCount   int
}

func analyzeSensor(logs []model.NormalizedLogRecord) model.AnalysisResult {
	result := model.AnalysisResult{Issues: []string{}}
	zero := 0.0
	result.CheckpointRate = &zero
	result.UltrasonicAvg = &zero
	if len(logs) == 0 {
		return result
	}

	acc := sensorAcc{
		times:        map[string]int64{},
		prevDistance: noReadingDistanceCm,
	}
	for i, rec := range logs {
		acc = foldSensorRecord(acc, i, rec)
	}

	last := logs[len(logs)-1].TimestampMs
	acc.times[acc.currentSection] += last - acc.enteredAt

	timeline := make([]model.TimelineEntry, 0, len(acc.timeline)+2)
	timeline = append(timeline, model.TimelineEntry{TimeMs: 0, Event: "Run started"})
	timeline = append(timeline, acc.timeline...)
	timeline = append(timeline, model.TimelineEntry{TimeMs: last, Event: "Run completed"})
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].TimeMs < timeline[j].TimeMs
	})

	result.Timeline = timeline
	result.SectionSequence = acc.sequence
	result.SectionTimes = acc.times

	for _, section := range acc.sectionOrder {
		if t := acc.times[section]; t > longSectionMs {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Long time in %s: %.1fs", section, float64(t)/1000))
		}
	}

	rate := 0.0
	if acc.checkpointTotal > 0 {
		rate = float64(acc.checkpointHits) / float64(acc.checkpointTotal) * 100
	}
	result.CheckpointRate = &rate
	if rate < lowCheckpointRate {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Low checkpoint success rate: %.1f%%", rate))
	}

	avg := 0.0
	if acc.distanceCount > 0 {
		avg = acc.distanceSum / float64(acc.distanceCount)
	}
	result.UltrasonicAvg = &avg

	return result
}

func foldSensorRecord(acc sensorAcc, i int, rec model.NormalizedLogRecord) sensorAcc {
	if i == 0 {
		// The first record establishes the initial section silently.
		acc.currentSection = rec.SectionName
		acc.enteredAt = rec.TimestampMs
		acc.sequence = append(acc.sequence, rec.SectionName)
		acc.sectionOrder = append(acc.sectionOrder, rec.SectionName)
	} else if rec.SectionName != acc.currentSection {
		acc.times[acc.currentSection] += rec.TimestampMs - acc.enteredAt
		acc.currentSection = rec.SectionName
		acc.enteredAt = rec.TimestampMs
		acc.sequence = append(acc.sequence, rec.SectionName)
		acc.sectionOrder = appendUnseen(acc.sectionOrder, rec.SectionName)
		acc.timeline = append(acc.timeline, model.TimelineEntry{
			TimeMs: rec.TimestampMs,
			Event:  "Entered " + rec.SectionName,
		})
	}

	if acc.prevClaw < clawClosedAngle && rec.ClawStatus >= clawClosedAngle {
		acc.timeline = append(acc.timeline, model.TimelineEntry{
			TimeMs: rec.TimestampMs,
			Event:  "Claw closed (picking up)",
		})
	} else if acc.prevClaw >= clawClosedAngle && rec.ClawStatus < clawClosedAngle {
		acc.timeline = append(acc.timeline, model.TimelineEntry{
			TimeMs: rec.TimestampMs,
			Event:  "Claw opened (dropping)",
		})
	}
	acc.prevClaw = rec.ClawStatus

	if rec.UltrasonicDistance < obstacleDistanceCm && acc.prevDistance >= obstacleDistanceCm {
		acc.timeline = append(acc.timeline, model.TimelineEntry{
			TimeMs: rec.TimestampMs,
			Event: fmt.Sprintf("Obstacle detected (%scm)",
				strconv.FormatFloat(rec.UltrasonicDistance, 'f', -1, 64)),
		})
	}
	acc.prevDistance = rec.UltrasonicDistance

	acc.checkpointTotal++
	if rec.CheckpointSuccess == 1 {
		acc.checkpointHits++
	}
	acc.distanceSum += rec.UltrasonicDistance
	acc.distanceCount++

	return acc
}

func appendUnseen(order []string, name string) []string {
	for _, n := range order {
		if n == name {
			return order
		}
	}
	return append(order, name)
}

// analyzeEvent implements the legacy event-code strategy. A zone's recorded
// interval is the gap between its ZoneChange record and the next record in
// the log, zero for the final record. Adjacency-based, unlike the sensor
// strategy's boundary accounting.
func analyzeEvent(logs []model.NormalizedLogRecord) model.AnalysisResult {
	result := model.AnalysisResult{Issues: []string{}}
	if len(logs) == 0 {
		return result
	}

	times := map[string]int64{}
	var sequence []string
	var zoneOrder []string

	for i, rec := range logs {
		if rec.EventName != "ZoneChange" {
			continue
		}
		sequence = append(sequence, rec.ZoneName)
		zoneOrder = appendUnseen(zoneOrder, rec.ZoneName)

		var delta int64
		if i+1 < len(logs) {
			delta = logs[i+1].TimestampMs - rec.TimestampMs
		}
		times[rec.ZoneName] += delta
	}

	result.SectionSequence = sequence
	result.SectionTimes = times

	for _, zone := range zoneOrder {
		if t := times[zone]; t > stuckZoneMs {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Stuck in %s: %.1fs", zone, float64(t)/1000))
		}
	}

	if count := oscillationCount(sequence); count > oscillationThreshold {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Oscillation detected: %d times", count))
	}

	return result
}

// oscillationCount counts A/B/A patterns: positions where the sequence
// repeats its value from two steps back while differing from the previous
// one. The scan starts at the fourth element, so the first back-and-forth in
// a run is treated as warm-up and never counted; existing stored analyses
// depend on that bookkeeping.
func oscillationCount(sequence []string) int {
	count := 0
	for i := 3; i < len(sequence); i++ {
		if sequence[i] == sequence[i-2] && sequence[i] != sequence[i-1] {
			count++
		}
	}
	return count
}
