package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/matthewgwang/utra-da/internal/model"
	"github.com/matthewgwang/utra-da/internal/pipeline"
)

// Service computes a run's analysis and attaches coaching feedback.
// A nil client selects mock mode.
type Service struct {
	client *Client
	logger *slog.Logger

	// sf collapses concurrent external-model calls for the same run.
	// Re-analysis after completion still goes to the model; only simultaneous
	// duplicates share one paid call.
	sf singleflight.Group
}

// New creates a coach service. client may be nil, in which case every
// analysis takes the deterministic mock path.
func New(client *Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// coachText is the model's contribution merged into an AnalysisResult.
type coachText struct {
	response string
	usage    map[string]any
}

// Analyze computes the run's metrics and issue detection, then merges in
// either the external model's response or the mock summary. The external
// call's failure is returned wrapped in ErrExternal and never replaced by a
// mock result.
func (s *Service) Analyze(ctx context.Context, run *model.Run) (model.AnalysisResult, error) {
	result := pipeline.Analyze(run.Format, run.Logs)

	if s.client == nil {
		s.mock(run, &result)
		return result, nil
	}

	prompt := BuildPrompt(run, result)
	v, err, shared := s.sf.Do(run.ID.String(), func() (any, error) {
		response, usage, err := s.client.Complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return coachText{response: response, usage: usage}, nil
	})
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("coach: analyze run %s: %w", run.ID, err)
	}
	if shared {
		s.logger.Debug("coach: shared in-flight model call", "run_id", run.ID)
	}

	text := v.(coachText)
	result.Summary = fmt.Sprintf("AI coaching analysis for robot %s, run #%d.", run.RobotID, run.RunNumber)
	result.RawResponse = text.response
	result.Usage = text.usage
	result.Model = s.client.Model()
	return result, nil
}

// mock fills in the deterministic no-credential result: it echoes the
// computed issues and metrics, scores 0 and states that real analysis
// requires configuration. Byte-identical across repeated calls.
func (s *Service) mock(run *model.Run, result *model.AnalysisResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "Mock analysis for robot %s, run #%d (%d log records).\n",
		run.RobotID, run.RunNumber, len(run.Logs))
	if len(result.Issues) > 0 {
		b.WriteString("Detected issues:\n")
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	} else {
		b.WriteString("No issues detected.\n")
	}
	if result.CheckpointRate != nil {
		fmt.Fprintf(&b, "Checkpoint success rate: %.1f%%\n", *result.CheckpointRate)
	}
	if result.UltrasonicAvg != nil {
		fmt.Fprintf(&b, "Average ultrasonic distance: %.1fcm\n", *result.UltrasonicAvg)
	}

	score := 0.0
	result.Summary = "AI analysis requires configuration: set OPENROUTER_API_KEY to enable coaching feedback."
	result.RawResponse = b.String()
	result.Score = &score
}
