package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/metrics"
	"fantasy-backtest/internal/model"
)

// DefaultBounds is the search interval for any factor without an override.
var DefaultBounds = Bounds{Lower: 0, Upper: 0.3}

var (
	ErrInsufficientGames = errors.New("at least 2 analyzable games are required to optimize weights")
	ErrNoFeasibleWeights = errors.New("every candidate weight vector failed to evaluate")
)

// WeightOptimizer searches factor weights that maximize backtest accuracy.
type WeightOptimizer struct {
	engine   *backtest.Engine
	settings Settings
	bounds   Bounds
	log      *logrus.Entry
}

func NewWeightOptimizer(engine *backtest.Engine, settings Settings) *WeightOptimizer {
	return &WeightOptimizer{
		engine:   engine,
		settings: settings,
		bounds:   DefaultBounds,
		log:      logger.WithComponent("optimizer"),
	}
}

func (o *WeightOptimizer) WithLogger(l *logrus.Entry) *WeightOptimizer {
	cp := *o
	cp.log = l
	return &cp
}

// WithSettings returns a copy using s.
func (o *WeightOptimizer) WithSettings(s Settings) *WeightOptimizer {
	cp := *o
	cp.settings = s
	return &cp
}

// WithDefaultBounds changes the interval used for factors without an override.
func (o *WeightOptimizer) WithDefaultBounds(b Bounds) *WeightOptimizer {
	cp := *o
	cp.bounds = b
	return &cp
}

func (o *WeightOptimizer) Settings() Settings { return o.settings }

// Optimize maximizes accuracy over player's games. overrides narrows or widens
// individual factors; others use the default bounds.
func (o *WeightOptimizer) Optimize(ctx context.Context, player string, games []model.GameContext, overrides map[string]Bounds) (*model.OptimizationResult, error) {
	return o.OptimizePrepared(ctx, o.engine.Prepare(player, games), overrides)
}

// OptimizePrepared runs the search over an already prepared history, so
// callers that also need a baseline backtest score factors only once.
func (o *WeightOptimizer) OptimizePrepared(ctx context.Context, prep *backtest.Prepared, overrides map[string]Bounds) (*model.OptimizationResult, error) {
	if prep.Games() < 2 {
		return nil, fmt.Errorf("%s: %w (have %d)", prep.Player, ErrInsufficientGames, prep.Games())
	}

	names := prep.Names
	bounds := make([]Bounds, len(names))
	for i, n := range names {
		b, ok := overrides[n]
		if !ok {
			b = o.bounds
		}
		bounds[i] = b
	}

	log := o.log.WithFields(logrus.Fields{
		"player":  prep.Player,
		"games":   prep.Games(),
		"factors": len(names),
	})
	log.WithFields(logrus.Fields{
		"popsize": o.settings.PopSize,
		"maxiter": o.settings.MaxIter,
		"seed":    o.settings.Seed,
	}).Info("optimizing weights")

	started := time.Now()
	objective := func(x []float64) (float64, error) {
		acc, err := prep.Accuracy(x)
		if err != nil {
			return 0, err
		}
		return -acc, nil
	}

	res, err := DifferentialEvolution(ctx, objective, bounds, o.settings)
	if err != nil {
		return nil, fmt.Errorf("optimize weights for %s: %w", prep.Player, err)
	}
	if math.IsInf(res.Fun, 1) {
		return nil, fmt.Errorf("optimize weights for %s: %w", prep.Player, ErrNoFeasibleWeights)
	}
	elapsed := time.Since(started)
	metrics.BacktestDuration.WithLabelValues("optimize").Observe(elapsed.Seconds())

	raw := model.WeightsFromVector(names, res.X)
	out := &model.OptimizationResult{
		Player:        prep.Player,
		Weights:       raw.Normalized(),
		RawWeights:    raw,
		Accuracy:      -res.Fun,
		GamesAnalyzed: prep.Games(),
		Iterations:    res.Iterations,
		Evaluations:   res.Evaluations,
		Failures:      res.Failures,
		Converged:     res.Converged,
		Polished:      res.Polished,
		Duration:      elapsed,
	}

	log.WithFields(logrus.Fields{
		"accuracy":    out.Accuracy,
		"iterations":  out.Iterations,
		"evaluations": out.Evaluations,
		"failures":    out.Failures,
		"converged":   out.Converged,
		"elapsed":     elapsed.String(),
	}).Info("optimization complete")
	return out, nil
}
