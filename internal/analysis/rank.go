package analysis

import (
	"sort"

	"fantasy-backtest/internal/tuner"
)

// RankByAccuracy summarizes each player and sorts descending by accuracy.
// Players without analyzed games sink to the bottom.
func RankByAccuracy(players []tuner.PlayerReport) []PlayerSummary {
	out := make([]PlayerSummary, 0, len(players))
	for _, p := range players {
		out = append(out, ComputeSummary(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Games == 0) != (out[j].Games == 0) {
			return out[i].Games > 0
		}
		return out[i].Accuracy > out[j].Accuracy
	})
	return out
}
