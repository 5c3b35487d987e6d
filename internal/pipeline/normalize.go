package pipeline

import "github.com/matthewgwang/utra-da/internal/model"

// Normalizer converts raw records of any detected format into normalized
// records carrying human-readable names for codes and ids. The lookup tables
// are fixed at construction and never mutated, so a single Normalizer is safe
// for concurrent use.
type Normalizer struct {
	eventNames   map[int]string
	zoneNames    map[int]string
	sectionNames map[int]string
}

// NewNormalizer creates a Normalizer with the standard lookup tables.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		eventNames:   defaultEventNames(),
		zoneNames:    defaultZoneNames(),
		sectionNames: defaultSectionNames(),
	}
}

// NormalizeRun detects the format of a raw log sequence and normalizes every
// record under it. Record order is preserved; nothing is sorted, deduplicated
// or rejected. Missing fields default to zero and unknown ids to "Unknown".
func (n *Normalizer) NormalizeRun(logs []model.RawLogRecord) ([]model.NormalizedLogRecord, model.RunFormat) {
	format := DetectFormat(logs)
	normalized := make([]model.NormalizedLogRecord, 0, len(logs))
	for _, raw := range logs {
		normalized = append(normalized, n.normalize(raw, format))
	}
	return normalized, format
}

func (n *Normalizer) normalize(raw model.RawLogRecord, format model.RunFormat) model.NormalizedLogRecord {
	rec := model.NormalizedLogRecord{
		TimestampMs: intField(raw, "timestamp"),
	}

	switch format {
	case model.FormatEvent:
		rec.EventCode = int(intField(raw, "event"))
		rec.EventName = lookupName(n.eventNames, rec.EventCode)
		rec.ZoneID = int(intField(raw, "data"))
		rec.ZoneName = lookupName(n.zoneNames, rec.ZoneID)
		rec.Raw = raw

	case model.FormatSensor:
		n.normalizeSensorFields(raw, &rec)
		rec.Raw = raw

	case model.FormatPath:
		n.normalizeSensorFields(raw, &rec)
		rec.X = floatField(raw, "x")
		rec.Y = floatField(raw, "y")
		rec.SegmentID = strField(raw, "segment_id")
		rec.SegmentIndex = int(intField(raw, "segment_index"))
	}

	return rec
}

func (n *Normalizer) normalizeSensorFields(raw model.RawLogRecord, rec *model.NormalizedLogRecord) {
	rec.SectionID = int(intField(raw, "section_id"))
	rec.SectionName = lookupName(n.sectionNames, rec.SectionID)
	rec.CheckpointSuccess = int(intField(raw, "checkpoint_success"))
	rec.UltrasonicDistance = floatField(raw, "ultrasonic_distance")
	rec.ClawStatus = floatField(raw, "claw_status")
}

func lookupName(table map[int]string, id int) string {
	if name, ok := table[id]; ok {
		return name
	}
	return unknownName
}

// floatField extracts a numeric field from a raw record, tolerating the types
// encoding/json produces (float64) plus ints from hand-built test records.
// Missing or non-numeric values default to zero.
func floatField(raw model.RawLogRecord, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func intField(raw model.RawLogRecord, key string) int64 {
	return int64(floatField(raw, key))
}

func strField(raw model.RawLogRecord, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}
