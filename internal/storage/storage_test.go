package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewgwang/utra-da/internal/model"
	"github.com/matthewgwang/utra-da/internal/pipeline"
	"github.com/matthewgwang/utra-da/internal/storage"
	"github.com/matthewgwang/utra-da/internal/testutil"
)

var testDB *storage.DB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}

	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		tc.Terminate()
		panic(err)
	}
	defer testDB.Close()

	os.Exit(m.Run())
}

func clearAll(t *testing.T) {
	t.Helper()
	_, err := testDB.ClearRuns(context.Background())
	require.NoError(t, err)
}

func TestRunRoundTrip(t *testing.T) {
	clearAll(t)
	ctx := context.Background()

	// Ingest the way the handler does: raw records through the normalizer.
	raw := []model.RawLogRecord{
		{"timestamp": float64(0), "section_id": float64(1), "ultrasonic_distance": 30.0, "checkpoint_success": float64(1)},
		{"timestamp": float64(1000), "section_id": float64(2), "ultrasonic_distance": 20.0, "checkpoint_success": float64(1)},
	}
	normalized, format := pipeline.NewNormalizer().NormalizeRun(raw)

	created, err := testDB.CreateRun(ctx, model.Run{
		RobotID:   "alpha",
		RunNumber: 7,
		Format:    format,
		Logs:      normalized,
		Metadata:  map[string]any{"driver": "sam"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := testDB.GetRun(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alpha", got.RobotID)
	assert.Equal(t, 7, got.RunNumber)
	assert.Equal(t, model.FormatSensor, got.Format)
	assert.False(t, got.Analyzed)
	assert.Nil(t, got.Analysis)
	assert.Nil(t, got.AnalyzedAt)
	assert.Equal(t, map[string]any{"driver": "sam"}, got.Metadata)

	// Every submitted record survives the round trip, in order.
	require.Len(t, got.Logs, len(raw))
	assert.Equal(t, int64(0), got.Logs[0].TimestampMs)
	assert.Equal(t, "Red Path", got.Logs[0].SectionName)
	assert.Equal(t, int64(1000), got.Logs[1].TimestampMs)
	assert.Equal(t, "Ramp", got.Logs[1].SectionName)
}

func TestGetRunNotFound(t *testing.T) {
	_, err := testDB.GetRun(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	clearAll(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := testDB.CreateRun(ctx, model.Run{
			RobotID:   "alpha",
			RunNumber: i + 1,
			Format:    model.FormatEvent,
			Logs: []model.NormalizedLogRecord{
				{TimestampMs: 0, EventCode: 1, EventName: "Start"},
			},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	summaries, total, err := testDB.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, summaries, 2)

	// Newest first.
	assert.Equal(t, 3, summaries[0].RunNumber)
	assert.Equal(t, 2, summaries[1].RunNumber)
	assert.Equal(t, 1, summaries[0].LogCount)
	assert.Equal(t, 0, summaries[0].EventCount)

	// Offset past the end.
	summaries, total, err = testDB.ListRuns(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, summaries)
}

func TestSaveAnalysis(t *testing.T) {
	clearAll(t)
	ctx := context.Background()

	created, err := testDB.CreateRun(ctx, model.Run{
		RobotID:   "alpha",
		RunNumber: 1,
		Format:    model.FormatSensor,
	})
	require.NoError(t, err)

	rate := 80.0
	analysis := model.AnalysisResult{
		SectionSequence: []string{"Red Path", "Ramp"},
		SectionTimes:    map[string]int64{"Red Path": 2000, "Ramp": 0},
		Issues:          []string{"Low checkpoint success rate: 80.0%"},
		CheckpointRate:  &rate,
		Summary:         "solid run",
	}

	analyzedAt, err := testDB.SaveAnalysis(ctx, created.ID, analysis)
	require.NoError(t, err)
	assert.False(t, analyzedAt.IsZero())

	got, err := testDB.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Analyzed)
	require.NotNil(t, got.AnalyzedAt)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, analysis.SectionSequence, got.Analysis.SectionSequence)
	assert.Equal(t, analysis.SectionTimes, got.Analysis.SectionTimes)
	assert.Equal(t, analysis.Issues, got.Analysis.Issues)
	require.NotNil(t, got.Analysis.CheckpointRate)
	assert.Equal(t, 80.0, *got.Analysis.CheckpointRate)
	assert.Equal(t, "solid run", got.Analysis.Summary)

	// Re-analysis overwrites, last write wins.
	analysis.Summary = "second pass"
	_, err = testDB.SaveAnalysis(ctx, created.ID, analysis)
	require.NoError(t, err)

	got, err = testDB.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "second pass", got.Analysis.Summary)
}

func TestSaveAnalysisNotFound(t *testing.T) {
	_, err := testDB.SaveAnalysis(context.Background(), uuid.New(), model.AnalysisResult{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClearRuns(t *testing.T) {
	clearAll(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := testDB.CreateRun(ctx, model.Run{RobotID: "alpha", RunNumber: i + 1, Format: model.FormatEvent})
		require.NoError(t, err)
	}

	deleted, err := testDB.ClearRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, total, err := testDB.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()

	// Nothing ingested yet in this database.
	_, err := testDB.LatestTelemetry(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	first, err := testDB.InsertTelemetry(ctx, map[string]any{"battery": 11.4})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	// Force a later received_at for a deterministic "latest".
	time.Sleep(5 * time.Millisecond)
	second, err := testDB.InsertTelemetry(ctx, map[string]any{"battery": 11.2})
	require.NoError(t, err)

	latest, err := testDB.LatestTelemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, map[string]any{"battery": 11.2}, latest.Payload)
}
