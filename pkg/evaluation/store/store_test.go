package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("sqlite3 driver requires cgo")
	}
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(id, key string, at time.Time, acc float64) *evaluation.Report {
	return &evaluation.Report{
		RunID:     id,
		RunKey:    key,
		CreatedAt: at,
		Duration:  1500 * time.Millisecond,
		Summary: &evaluation.Summary{
			EvalLen:        3,
			Answered:       2,
			MeanAccuracy:   acc,
			PercentPerfect: acc,
			Overlap: evaluation.OverlapScores{
				Rouge1: evaluation.OverlapScore{FMeasure: 0.5},
				RougeL: evaluation.OverlapScore{FMeasure: 0.25},
			},
			MeanSemantic:     0.7,
			FactualityCounts: map[evaluation.Category]int{evaluation.CategorySame: 2},
			JudgeErrors:      1,
		},
	}
}

func TestSQLite_RecordAndList(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, RunFromReport(testReport("r1", "nightly", base, 1.0/3), "file:///tmp/score-nightly.json")))
	require.NoError(t, s.Record(ctx, RunFromReport(testReport("r2", "nightly", base.Add(time.Hour), 2.0/3), "")))
	require.NoError(t, s.Record(ctx, RunFromReport(testReport("r3", "other", base.Add(2*time.Hour), 0), "")))

	runs, err := s.List(ctx, "nightly", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID, "newest first")
	assert.InDelta(t, 2.0/3, runs[0].MeanAccuracy, 1e-12)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.Equal(t, 2, runs[0].FactualityCounts[evaluation.CategorySame])
	assert.Equal(t, 0.25, runs[1].RougeLF)
	assert.Equal(t, "file:///tmp/score-nightly.json", runs[1].Reference)

	all, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "r3", all[0].RunID)
}

func TestSQLite_RecordReplacesSameRunID(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, RunFromReport(testReport("r1", "k", at, 0.1), "")))
	require.NoError(t, s.Record(ctx, RunFromReport(testReport("r1", "k", at, 0.9), "")))

	runs, err := s.List(ctx, "k", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.InDelta(t, 0.9, runs[0].MeanAccuracy, 1e-12)
}
