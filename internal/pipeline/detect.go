package pipeline

import "github.com/matthewgwang/utra-da/internal/model"

// DetectFormat classifies a raw log sequence into one of the three known
// formats by inspecting the first record's field set:
//
//   - both "x" and "y" present → path
//   - "section_id" present → sensor
//   - anything else → event (legacy Arduino event codes)
//
// An empty sequence defaults to the event format; downstream stages tolerate
// zero records. Classification is total; it always resolves.
//
// Only the first record is inspected. A mixed-format sequence is silently
// normalized under the first record's format; cross-record validation would
// change accepted-input semantics for existing clients.
func DetectFormat(logs []model.RawLogRecord) model.RunFormat {
	if len(logs) == 0 {
		return model.FormatEvent
	}
	first := logs[0]
	_, hasX := first["x"]
	_, hasY := first["y"]
	if hasX && hasY {
		return model.FormatPath
	}
	if _, ok := first["section_id"]; ok {
		return model.FormatSensor
	}
	return model.FormatEvent
}
