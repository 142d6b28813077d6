package scoring

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/metrics"
	"fantasy-backtest/internal/model"
)

// Scorer combines factor scores into a composite. A failing factor
// contributes 0 and never aborts the others.
type Scorer struct {
	provider *factor.Provider
	cache    *Cache
	log      *logrus.Entry
}

// NewScorer builds a scorer over provider. A nil cache disables caching.
func NewScorer(provider *factor.Provider, cache *Cache) *Scorer {
	if provider == nil {
		provider = factor.Baseline()
	}
	return &Scorer{
		provider: provider,
		cache:    cache,
		log:      logger.WithComponent("scoring"),
	}
}

// WithLogger swaps the log destination.
func (s *Scorer) WithLogger(l *logrus.Entry) *Scorer {
	cp := *s
	cp.log = l
	return &cp
}

func (s *Scorer) Provider() *factor.Provider { return s.provider }

// FactorNames is the fixed order composites are summed in.
func (s *Scorer) FactorNames() []string { return s.provider.Names() }

func (s *Scorer) CacheStats() CacheStats { return s.cache.Stats() }

// ClearCache drops cached factor scores, e.g. after history is reloaded.
func (s *Scorer) ClearCache() { s.cache.Clear() }

// FactorScores evaluates every factor for (player, game), using the cache.
func (s *Scorer) FactorScores(player string, g model.GameContext) model.FactorScoreSet {
	key := CacheKey(player, g)
	if scores, ok := s.cache.Get(key); ok {
		return scores
	}

	ctx := factor.Context{Player: player, Game: g}
	scores := make(model.FactorScoreSet, s.provider.Len())
	for _, sc := range s.provider.Scorers() {
		v, err := safeScore(sc, ctx)
		if err != nil {
			metrics.FactorFailuresTotal.WithLabelValues(sc.Name()).Inc()
			s.log.WithFields(logrus.Fields{
				"factor":  sc.Name(),
				"player":  player,
				"game_id": g.Key(),
			}).WithError(err).Warn("factor failed, scoring as 0")
			v = 0
		}
		scores[sc.Name()] = v
	}

	s.cache.Set(key, scores)
	return scores
}

// Composite is the weighted sum of factor scores for (player, game).
func (s *Scorer) Composite(player string, g model.GameContext, w model.FactorWeights) float64 {
	return Combine(s.provider.Names(), s.FactorScores(player, g), w)
}

// Combine sums w[name]*scores[name] over names in order. Weight keys not in
// names are ignored; names missing from w use their default weight.
func Combine(names []string, scores model.FactorScoreSet, w model.FactorWeights) float64 {
	total := 0.0
	for _, n := range names {
		total += w.Get(n) * scores[n]
	}
	return total
}

// Dot is Combine over pre-resolved vectors; the optimizer's hot path.
func Dot(weights, scores []float64) float64 {
	total := 0.0
	for i := range weights {
		total += weights[i] * scores[i]
	}
	return total
}

func safeScore(sc factor.Scorer, ctx factor.Context) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	v, err = sc.Score(ctx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite score %v", v)
	}
	return v, nil
}
