package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/scoring"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/tuner"
	"fantasy-backtest/internal/weights"
)

func setup(t *testing.T) (*Runner, *store.SQLiteStore, *weights.Store) {
	t.Helper()
	quiet := logger.Discard().WithField("test", t.Name())

	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "tuner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	settings := optimizer.DefaultSettings()
	settings.PopSize = 2
	settings.MaxIter = 2
	settings.Polish = false

	engine := backtest.New(scoring.NewScorer(factor.Baseline(), scoring.NewCache()), model.PointsScheme{}).WithLogger(quiet)
	ws := weights.NewStore(t.TempDir()).WithLogger(quiet)
	tn := tuner.New(engine, optimizer.NewWeightOptimizer(engine, settings).WithLogger(quiet), ws, db).WithLogger(quiet)
	return NewRunner(db, tn).WithLogger(quiet), db, ws
}

func TestRunnerCompletesAndIsIdempotent(t *testing.T) {
	r, db, ws := setup(t)
	players := []string{"Juan Soto", "Aaron Judge"}
	games := data.SyntheticLeague(players, 20, 5)
	opts := tuner.Options{Optimize: true, Save: true}

	sum, err := r.Run(context.Background(), "nightly-2024-05-01", games, players, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Enqueued)
	assert.Equal(t, 2, sum.Resumed)
	assert.Equal(t, 2, sum.Done)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 2, sum.Saved)
	assert.True(t, ws.HasOverride("Juan Soto"))
	assert.True(t, ws.HasOverride("Aaron Judge"))

	tasks, err := db.Tasks("nightly-2024-05-01")
	require.NoError(t, err)
	for _, task := range tasks {
		assert.Equal(t, store.TaskDone, task.Status)
		assert.Equal(t, 1, task.Attempts)
	}

	again, err := r.Run(context.Background(), "nightly-2024-05-01", games, players, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Enqueued)
	assert.Equal(t, 0, again.Resumed)
	assert.Empty(t, again.Players)

	runs, err := db.RecentRuns("", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2, "second invocation did no work")
}

func TestRunnerResumesInterruptedBatch(t *testing.T) {
	r, db, _ := setup(t)
	players := []string{"Juan Soto", "Aaron Judge", "Mookie Betts"}
	games := data.SyntheticLeague(players, 10, 9)

	_, err := db.Enqueue("b", players)
	require.NoError(t, err)
	tasks, err := db.Tasks("b")
	require.NoError(t, err)
	require.NoError(t, db.MarkRunning(tasks[0].ID))
	require.NoError(t, db.MarkDone(tasks[0].ID))
	require.NoError(t, db.MarkRunning(tasks[1].ID))

	sum, err := r.Run(context.Background(), "b", games, players, tuner.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Enqueued)
	assert.Equal(t, 2, sum.Resumed)
	require.Len(t, sum.Players, 2)
	assert.Equal(t, "Aaron Judge", sum.Players[0].Player)
	assert.Equal(t, "Mookie Betts", sum.Players[1].Player)

	tasks, err = db.Tasks("b")
	require.NoError(t, err)
	assert.Equal(t, 2, tasks[1].Attempts)
}

func TestRunnerCancelled(t *testing.T) {
	r, db, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, "b", nil, []string{"Juan Soto"}, tuner.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Equal(t, 0, sum.Done)

	left, err := db.Resumable("b")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRunnerRequiresID(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.Run(context.Background(), "", nil, nil, tuner.Options{})
	assert.Error(t, err)
}
