package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

func constFactor(name string, v float64) factor.Scorer {
	return factor.Func{FactorName: name, Fn: func(factor.Context) (float64, error) { return v, nil }}
}

func newTestScorer(t *testing.T, scorers ...factor.Scorer) *Scorer {
	t.Helper()
	p, err := factor.NewProvider(scorers...)
	require.NoError(t, err)
	return NewScorer(p, NewCache()).WithLogger(logger.Discard().WithField("test", t.Name()))
}

func TestCompositeZeroWeightsIsZero(t *testing.T) {
	s := NewScorer(factor.Baseline(), NewCache()).WithLogger(logger.Discard().WithField("test", t.Name()))
	zero := model.FactorWeights{}
	for _, n := range model.FactorNames() {
		zero[n] = 0
	}
	g := model.GameContext{GameID: "1", Venue: "Coors Field", IsHome: true, WindSpeed: 12, WindDirection: "Out To RF"}
	assert.Equal(t, 0.0, s.Composite("Mookie Betts", g, zero))
}

func TestCompositeWeightedSum(t *testing.T) {
	s := newTestScorer(t, constFactor("a", 0.5), constFactor("b", -0.2))
	w := model.FactorWeights{"a": 0.4, "b": 0.1, "unknown": 10}
	got := s.Composite("p", model.GameContext{GameID: "g"}, w)
	assert.InDelta(t, 0.4*0.5+0.1*-0.2, got, 1e-12)
}

func TestCompositeMissingWeightUsesDefault(t *testing.T) {
	s := newTestScorer(t, constFactor(model.FactorWind, 1), constFactor("custom", 1))
	got := s.Composite("p", model.GameContext{GameID: "g"}, model.FactorWeights{})
	assert.InDelta(t, 0.10+model.DefaultFactorWeight, got, 1e-12)
}

func TestFailingFactorsContributeZero(t *testing.T) {
	failing := factor.Func{FactorName: "err", Fn: func(factor.Context) (float64, error) { return 1, errors.New("no data") }}
	panicky := factor.Func{FactorName: "panic", Fn: func(factor.Context) (float64, error) { panic("nil map") }}
	nan := factor.Func{FactorName: "nan", Fn: func(factor.Context) (float64, error) { return math.NaN(), nil }}
	s := newTestScorer(t, failing, panicky, nan, constFactor("ok", 0.5))

	w := model.FactorWeights{"err": 1, "panic": 1, "nan": 1, "ok": 1}
	scores := s.FactorScores("p", model.GameContext{GameID: "g"})
	assert.Equal(t, 0.0, scores["err"])
	assert.Equal(t, 0.0, scores["panic"])
	assert.Equal(t, 0.0, scores["nan"])
	assert.Equal(t, 0.5, s.Composite("p", model.GameContext{GameID: "g"}, w))
}

func TestFactorScoresAreCached(t *testing.T) {
	calls := 0
	counting := factor.Func{FactorName: "c", Fn: func(factor.Context) (float64, error) {
		calls++
		return 0.1, nil
	}}
	s := newTestScorer(t, counting)
	g := model.GameContext{GameID: "g1"}

	for i := 0; i < 5; i++ {
		s.Composite("Player", g, model.FactorWeights{"c": float64(i)})
	}
	s.Composite(" player ", g, nil)
	assert.Equal(t, 1, calls)

	st := s.CacheStats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int64(5), st.Hits)
	assert.Equal(t, int64(1), st.Misses)

	s.Composite("Player", model.GameContext{GameID: "g2"}, nil)
	assert.Equal(t, 2, calls)
}

func TestChangedInputsMissCache(t *testing.T) {
	calls := 0
	counting := factor.Func{FactorName: "c", Fn: func(ctx factor.Context) (float64, error) {
		calls++
		return ctx.Game.Temperature / 100, nil
	}}
	s := newTestScorer(t, counting)
	g := model.GameContext{GameID: "1", Temperature: 90}

	assert.InDelta(t, 0.9, s.FactorScores("p", g)["c"], 1e-12)
	g.Stats.Hits = 3
	s.FactorScores("p", g)
	assert.Equal(t, 1, calls, "outcomes are not factor inputs")

	g.Temperature = 40
	assert.InDelta(t, 0.4, s.FactorScores("p", g)["c"], 1e-12)
	assert.Equal(t, 2, calls)

	s.ClearCache()
	assert.Equal(t, 0, s.CacheStats().Entries)
}

func TestCachedCopyIsIsolated(t *testing.T) {
	s := newTestScorer(t, constFactor("a", 0.3))
	g := model.GameContext{GameID: "g"}
	first := s.FactorScores("p", g)
	first["a"] = 99
	assert.Equal(t, 0.3, s.FactorScores("p", g)["a"])
}

func TestNilCacheStillScores(t *testing.T) {
	p, err := factor.NewProvider(constFactor("a", 0.3))
	require.NoError(t, err)
	s := NewScorer(p, nil)
	assert.InDelta(t, 0.3*model.DefaultFactorWeight, s.Composite("p", model.GameContext{}, nil), 1e-12)
	assert.Equal(t, CacheStats{}, s.CacheStats())
}

func TestDot(t *testing.T) {
	assert.Equal(t, 0.0, Dot(nil, nil))
	assert.InDelta(t, 0.11, Dot([]float64{0.1, 0.2}, []float64{0.5, 0.3}), 1e-12)
}
