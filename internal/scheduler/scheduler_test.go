package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/batch"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/tuner"
	"fantasy-backtest/internal/weights"
)

func newRunner(t *testing.T) (*batch.Runner, *store.SQLiteStore) {
	t.Helper()
	quiet := logger.Discard().WithField("test", t.Name())
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "tuner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine := backtest.New(nil, model.PointsScheme{}).WithLogger(quiet)
	tn := tuner.New(engine, optimizer.NewWeightOptimizer(engine, optimizer.DefaultSettings()), weights.NewStore(t.TempDir()).WithLogger(quiet), db).WithLogger(quiet)
	return batch.NewRunner(db, tn).WithLogger(quiet), db
}

func TestBatchID(t *testing.T) {
	assert.Equal(t, "retune-2024-05-01", BatchID("retune", time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)))
}

func TestRunNow(t *testing.T) {
	runner, db := newRunner(t)
	load := func() ([]model.GameContext, []string, error) {
		return data.SyntheticSeason("Juan Soto", 12, 1), nil, nil
	}
	s := New(context.Background(), runner, load, tuner.Options{}, "")
	s.now = func() time.Time { return time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC) }

	sum, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "retune-2024-05-01", sum.Batch)
	assert.Equal(t, 1, sum.Done)

	tasks, err := db.Tasks("retune-2024-05-01")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Juan Soto", tasks[0].Player)
}

func TestRunNowLoadError(t *testing.T) {
	runner, _ := newRunner(t)
	s := New(context.Background(), runner, func() ([]model.GameContext, []string, error) {
		return nil, nil, errors.New("disk gone")
	}, tuner.Options{}, "nightly")
	_, err := s.RunNow()
	assert.ErrorContains(t, err, "disk gone")
}

func TestRegister(t *testing.T) {
	runner, _ := newRunner(t)
	s := New(context.Background(), runner, nil, tuner.Options{}, "")
	assert.NoError(t, s.Register("0 0 6 * * *"))
	assert.Error(t, s.Register("not a cron spec"))
	assert.Len(t, s.Cron.Entries(), 1)

	s.Start()
	s.Stop()
}
