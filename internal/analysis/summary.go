package analysis

import (
	"math"
	"sort"

	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/tuner"
)

// PlayerSummary is a per-player line you can use for ranking.
// Points are raw fantasy points under the scoring scheme, not z-scores.
type PlayerSummary struct {
	Player string `json:"player"`
	Games  int    `json:"games"`

	Accuracy float64 `json:"accuracy"`
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`

	// Improvement is optimized minus baseline accuracy.
	Improvement float64 `json:"improvement,omitempty"`

	MeanPoints float64 `json:"mean_points"`
	MinPoints  float64 `json:"min_points"`
	MaxPoints  float64 `json:"max_points"`
	P05Points  float64 `json:"p05_points"`
	P95Points  float64 `json:"p95_points"`

	// StartRate is the share of games recommended START.
	StartRate float64 `json:"start_rate"`

	Error string `json:"error,omitempty"`
}

func ComputeSummary(pr tuner.PlayerReport) PlayerSummary {
	s := PlayerSummary{Player: pr.Player, Error: pr.Error}
	res := pr.Result
	if res == nil || res.GamesAnalyzed == 0 {
		return s
	}
	s.Games = res.GamesAnalyzed
	s.Accuracy = res.Accuracy
	s.MAE = res.MAE
	s.RMSE = res.RMSE
	s.Improvement = pr.Improvement()
	s.MeanPoints = res.ActualMean()

	vals := append([]float64(nil), res.Actuals...)
	sort.Float64s(vals)
	s.MinPoints = vals[0]
	s.MaxPoints = vals[len(vals)-1]
	s.P05Points = percentileSorted(vals, 0.05)
	s.P95Points = percentileSorted(vals, 0.95)

	starts := 0
	for _, row := range res.Ledger {
		if row.Recommendation == model.RecommendStart {
			starts++
		}
	}
	if len(res.Ledger) > 0 {
		s.StartRate = float64(starts) / float64(len(res.Ledger))
	}
	return s
}

// RosterSummary aggregates every analyzed player in a run.
type RosterSummary struct {
	Players        int     `json:"players"`
	Analyzed       int     `json:"analyzed"`
	Failed         int     `json:"failed"`
	TotalGames     int     `json:"total_games"`
	MeanAccuracy   float64 `json:"mean_accuracy"`
	MedianAccuracy float64 `json:"median_accuracy"`
	Best           string  `json:"best,omitempty"`
	Worst          string  `json:"worst,omitempty"`
}

// Summarize only counts players with at least one analyzed game toward the
// accuracy statistics.
func Summarize(players []PlayerSummary) RosterSummary {
	out := RosterSummary{Players: len(players)}
	var accs []float64
	best, worst := math.Inf(-1), math.Inf(1)
	for _, p := range players {
		if p.Error != "" {
			out.Failed++
		}
		if p.Games == 0 {
			continue
		}
		out.Analyzed++
		out.TotalGames += p.Games
		accs = append(accs, p.Accuracy)
		if p.Accuracy > best {
			best, out.Best = p.Accuracy, p.Player
		}
		if p.Accuracy < worst {
			worst, out.Worst = p.Accuracy, p.Player
		}
	}
	if len(accs) == 0 {
		return out
	}
	sum := 0.0
	for _, a := range accs {
		sum += a
	}
	out.MeanAccuracy = sum / float64(len(accs))
	sort.Float64s(accs)
	out.MedianAccuracy = percentileSorted(accs, 0.5)
	return out
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
