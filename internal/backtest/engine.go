package backtest

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/metrics"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/scoring"
)

type Engine struct {
	scorer *scoring.Scorer
	scheme model.PointsScheme
	log    *logrus.Entry
}

// New builds an engine. A nil scorer uses the baseline factors with a fresh
// cache; a zero scheme uses DefaultPointsScheme.
func New(scorer *scoring.Scorer, scheme model.PointsScheme) *Engine {
	if scorer == nil {
		scorer = scoring.NewScorer(factor.Baseline(), scoring.NewCache())
	}
	if scheme.IsZero() {
		scheme = model.DefaultPointsScheme()
	}
	return &Engine{
		scorer: scorer,
		scheme: scheme,
		log:    logger.WithComponent("backtest"),
	}
}

func (e *Engine) WithLogger(l *logrus.Entry) *Engine {
	cp := *e
	cp.log = l
	cp.scorer = e.scorer.WithLogger(l)
	return &cp
}

func (e *Engine) Scorer() *scoring.Scorer { return e.scorer }

func (e *Engine) FactorNames() []string { return e.scorer.FactorNames() }

// Run replays player's games under weights. It never fails: no matching
// games yields GamesAnalyzed == 0 and zero metrics.
func (e *Engine) Run(player string, games []model.GameContext, weights model.FactorWeights) *Result {
	return e.Prepare(player, games).Evaluate(weights)
}

// Prepared holds everything about a player's history that does not depend on
// weights: the selected games, their factor scores and their actual points.
// Evaluating a weight vector against it is a dot product per game.
type Prepared struct {
	Player string
	Names  []string

	games      []model.GameContext
	sets       []model.FactorScoreSet
	rows       [][]float64
	actuals    []float64
	normalized []float64
	skipped    int
}

// Prepare selects player's games and computes factor scores and actual points
// once. Games whose points cannot be computed are logged and skipped.
func (e *Engine) Prepare(player string, games []model.GameContext) *Prepared {
	names := e.scorer.FactorNames()
	selected := SelectGames(player, games)
	log := e.log.WithField("player", player)

	p := &Prepared{
		Player: player,
		Names:  names,
	}
	if len(selected) == 0 {
		log.Info("no games found for player")
		return p
	}

	for _, g := range selected {
		pts, err := e.scheme.Points(g.Stats)
		if err != nil {
			p.skipped++
			metrics.GamesSkippedTotal.Inc()
			log.WithField("game_id", g.Key()).WithError(err).Warn("skipping game")
			continue
		}
		set := e.scorer.FactorScores(player, g)
		row := make([]float64, len(names))
		for i, n := range names {
			row[i] = set[n]
		}
		p.games = append(p.games, g)
		p.sets = append(p.sets, set)
		p.rows = append(p.rows, row)
		p.actuals = append(p.actuals, pts)
	}
	p.normalized = zScore(p.actuals)

	log.WithFields(logrus.Fields{
		"games":   len(p.games),
		"skipped": p.skipped,
	}).Debug("prepared backtest")
	return p
}

// Games is the number of analyzable games.
func (p *Prepared) Games() int { return len(p.games) }

func (p *Prepared) Skipped() int { return p.skipped }

// Accuracy scores a weight vector given in Names order.
func (p *Prepared) Accuracy(x []float64) (float64, error) {
	if len(x) != len(p.Names) {
		return 0, fmt.Errorf("weight vector has %d entries, want %d", len(x), len(p.Names))
	}
	preds := make([]float64, len(p.rows))
	for i, row := range p.rows {
		preds[i] = scoring.Dot(x, row)
	}
	return pearson(preds, p.normalized), nil
}

// Evaluate produces the full result, ledger included.
func (p *Prepared) Evaluate(weights model.FactorWeights) *Result {
	res := &Result{
		Player:        p.Player,
		Weights:       weights.Clone(),
		GamesAnalyzed: len(p.games),
		GamesSkipped:  p.skipped,
	}
	if len(p.games) == 0 {
		return res
	}

	x := weights.Vector(p.Names)
	res.Ledger = make([]LedgerRow, 0, len(p.games))
	res.Predictions = make([]float64, len(p.games))
	res.Actuals = make([]float64, len(p.games))

	for i, g := range p.games {
		pred := scoring.Dot(x, p.rows[i])
		res.Predictions[i] = pred
		res.Actuals[i] = p.actuals[i]
		res.Ledger = append(res.Ledger, LedgerRow{
			Index:            i,
			GameID:           g.GameID,
			Date:             g.Date,
			Opponent:         g.Opponent,
			Venue:            g.Venue,
			IsHome:           g.IsHome,
			Factors:          p.sets[i],
			Predicted:        pred,
			Actual:           p.actuals[i],
			ActualNormalized: p.normalized[i],
			Recommendation:   model.RecommendationFromScore(pred),
		})
	}

	res.Accuracy = pearson(res.Predictions, p.normalized)
	res.MAE = meanAbsError(res.Predictions, p.normalized)
	res.RMSE = rootMeanSquaredError(res.Predictions, p.normalized)
	return res
}
