package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/model"
)

func openTest(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "tuner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecentRuns(t *testing.T) {
	s := openTest(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, p := range []string{"Juan Soto", "Aaron Judge", "Juan Soto"} {
		require.NoError(t, s.RecordRun(&RunRecord{
			RunID:         "run-1",
			Player:        p,
			Mode:          "optimize",
			GamesAnalyzed: 40 + i,
			Accuracy:      0.1 * float64(i+1),
			Converged:     i == 2,
			Weights:       model.FactorWeights{model.FactorWind: 0.2},
			Duration:      1500 * time.Millisecond,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.RecentRuns("juan soto", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 42, runs[0].GamesAnalyzed, "newest first")
	assert.True(t, runs[0].Converged)
	assert.InDelta(t, 0.2, runs[0].Weights[model.FactorWind], 1e-12)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.True(t, runs[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	all, err := s.RecentRuns("", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskQueueIdempotent(t *testing.T) {
	s := openTest(t)

	n, err := s.Enqueue("nightly-2024-05-01", []string{"Juan Soto", "Aaron Judge"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Enqueue("nightly-2024-05-01", []string{"Juan Soto", "Aaron Judge", "Mookie Betts"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same player in a different batch is a separate task.
	n, err = s.Enqueue("nightly-2024-05-02", []string{"Juan Soto"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, err := s.Tasks("nightly-2024-05-01")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Equal(t, TaskPending, task.Status)
	}
}

func TestTaskQueueResume(t *testing.T) {
	s := openTest(t)
	_, err := s.Enqueue("b", []string{"A", "B", "C"})
	require.NoError(t, err)
	tasks, err := s.Tasks("b")
	require.NoError(t, err)

	require.NoError(t, s.MarkRunning(tasks[0].ID))
	require.NoError(t, s.MarkDone(tasks[0].ID))
	require.NoError(t, s.MarkRunning(tasks[1].ID))
	require.NoError(t, s.MarkFailed(tasks[1].ID, errors.New("boom")))
	// C interrupted mid-run.
	require.NoError(t, s.MarkRunning(tasks[2].ID))

	left, err := s.Resumable("b")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "B", left[0].Player)
	assert.Equal(t, TaskFailed, left[0].Status)
	assert.Equal(t, "boom", left[0].LastError)
	assert.Equal(t, 1, left[0].Attempts)
	assert.Equal(t, "C", left[1].Player)
	assert.Equal(t, TaskPending, left[1].Status)

	assert.Error(t, s.MarkDone(9999))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&RunRecord{}))
	runs, err := r.RecentRuns("x", 1)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
