// Package app wires configuration into the long-lived services shared by the
// command-line programs.
package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/batch"
	"fantasy-backtest/internal/config"
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

type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Engine    *backtest.Engine
	Optimizer *optimizer.WeightOptimizer
	Weights   *weights.Store
	Tuner     *tuner.Tuner

	// SQLite is nil when database.sqlite_path is "off".
	SQLite   *store.SQLiteStore
	Recorder store.Recorder
}

// New initializes logging and builds every service from cfg.
func New(cfg *config.Config) (*App, error) {
	log := logger.InitLogger(cfg.Log.Level, cfg.Log.Format)

	engine := backtest.New(scoring.NewScorer(factor.Baseline(), scoring.NewCache()), cfg.Scoring)
	opt := optimizer.NewWeightOptimizer(engine, cfg.Optimizer.ToSettings()).
		WithDefaultBounds(cfg.Optimizer.ResolvedDefaultBounds())
	ws := weights.NewStore(cfg.Weights.Dir)

	a := &App{
		Config:    cfg,
		Log:       log,
		Engine:    engine,
		Optimizer: opt,
		Weights:   ws,
		Recorder:  store.NewNoopRecorder(),
	}
	if path := cfg.Database.SQLitePath; path != "" && path != "off" {
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open run store: %w", err)
		}
		a.SQLite = db
		a.Recorder = db
	}
	a.Tuner = tuner.New(engine, opt, ws, a.Recorder)
	return a, nil
}

// Source describes where the configured history lives.
func (a *App) Source() data.Source {
	d := a.Config.Data
	return data.Source{
		Dir:         d.Dir,
		HistoryFile: d.HistoryPath(),
		RosterFile:  d.RosterPath(),
		StartYear:   d.StartYear,
		EndYear:     d.EndYearOrCurrent(),
	}
}

// LoadHistory returns the games and roster player names. Missing history is
// not an error here; the tuner decides whether there is anything to run.
func (a *App) LoadHistory() ([]model.GameContext, []data.RosterEntry, error) {
	a.Engine.Scorer().ClearCache()
	ds, err := a.Source().Load()
	if err != nil {
		if errors.Is(err, data.ErrNoHistory) {
			logger.WithComponent("app").WithField("dir", a.Config.Data.Dir).Warn("no historical data found")
			roster, rerr := data.ResolveRoster(a.Config.Data.Dir, a.Config.Data.RosterPath())
			return nil, roster, rerr
		}
		return nil, nil, err
	}
	return ds.Games, ds.Roster, nil
}

// Options builds tuner options with the configured per-factor bounds.
func (a *App) Options(player string, optimize, save bool, ledgerDir string) tuner.Options {
	return tuner.Options{
		Player:    player,
		Optimize:  optimize,
		Save:      save,
		LedgerDir: ledgerDir,
		Bounds:    a.Config.Optimizer.Bounds,
	}
}

// BatchRunner requires the SQLite store for its task queue.
func (a *App) BatchRunner() (*batch.Runner, error) {
	if a.SQLite == nil {
		return nil, fmt.Errorf("batch runs need database.sqlite_path")
	}
	return batch.NewRunner(a.SQLite, a.Tuner), nil
}

func (a *App) Close() error {
	return a.Recorder.Close()
}
