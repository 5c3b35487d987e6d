// Package coach turns a run's computed analysis into natural-language
// coaching feedback. With an OpenRouter credential configured it prompts an
// external language model; without one it produces a deterministic mock
// result. Mock mode is a supported mode, not a degraded error state.
package coach

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/matthewgwang/utra-da/internal/model"
)

// maxPromptRecords caps how many normalized records are inlined in the
// prompt. Runs can hold a few thousand records; the model only needs a sample.
const maxPromptRecords = 50

// BuildPrompt renders a run and its computed analysis into the coaching
// prompt. The template asks the model for a performance summary, identified
// issues, actionable recommendations and a 0-10 score.
func BuildPrompt(run *model.Run, result model.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a robotics competition coach analyzing a robot's run.\n\n")
	fmt.Fprintf(&b, "Robot: %s, run #%d (%s format, %d log records)\n",
		run.RobotID, run.RunNumber, run.Format, len(run.Logs))

	if len(result.SectionSequence) > 0 {
		fmt.Fprintf(&b, "Section sequence: %s\n", strings.Join(result.SectionSequence, " -> "))
	}
	if len(result.SectionTimes) > 0 {
		b.WriteString("Time per section:\n")
		for _, name := range sortedKeys(result.SectionTimes) {
			fmt.Fprintf(&b, "  %s: %.1fs\n", name, float64(result.SectionTimes[name])/1000)
		}
	}
	if result.CheckpointRate != nil {
		fmt.Fprintf(&b, "Checkpoint success rate: %.1f%%\n", *result.CheckpointRate)
	}
	if result.UltrasonicAvg != nil {
		fmt.Fprintf(&b, "Average ultrasonic distance: %.1fcm\n", *result.UltrasonicAvg)
	}
	if len(result.Issues) > 0 {
		b.WriteString("Detected issues:\n")
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	} else {
		b.WriteString("No issues detected.\n")
	}

	records := run.Logs
	if len(records) > maxPromptRecords {
		records = records[:maxPromptRecords]
	}
	if len(records) > 0 {
		fmt.Fprintf(&b, "\nFirst %d log records:\n", len(records))
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			b.Write(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nRespond with:\n")
	b.WriteString("1. A short performance summary.\n")
	b.WriteString("2. The issues you identified.\n")
	b.WriteString("3. Actionable recommendations for the next run.\n")
	b.WriteString("4. An overall score from 0 to 10.\n")

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
