package analysis

import (
	"fmt"
	"io"

	"fantasy-backtest/internal/tuner"
)

// WriteReport prints the per-player table, the roster summary and, for
// optimized players, their weights sorted by weight.
func WriteReport(w io.Writer, r *tuner.Report) {
	ranked := RankByAccuracy(r.Players)

	fmt.Fprintf(w, "Run %s (%s)\n\n", r.RunID, r.Mode)
	fmt.Fprintf(w, "%-4s %-24s %-6s %-9s %-8s %-8s %-8s %-7s\n", "rank", "player", "games", "accuracy", "mae", "rmse", "avg pts", "start%")
	for i, s := range ranked {
		if s.Error != "" {
			fmt.Fprintf(w, "%-4d %-24s error: %s\n", i+1, s.Player, s.Error)
			continue
		}
		fmt.Fprintf(w, "%-4d %-24s %-6d %-9.4f %-8.4f %-8.4f %-8.2f %-7.1f\n",
			i+1, s.Player, s.Games, s.Accuracy, s.MAE, s.RMSE, s.MeanPoints, 100*s.StartRate)
	}

	sum := Summarize(ranked)
	fmt.Fprintf(w, "\nPlayers: %d analyzed of %d (%d failed), %d games\n", sum.Analyzed, sum.Players, sum.Failed, sum.TotalGames)
	if sum.Analyzed > 0 {
		fmt.Fprintf(w, "Accuracy: mean %.4f, median %.4f, best %s, worst %s\n", sum.MeanAccuracy, sum.MedianAccuracy, sum.Best, sum.Worst)
	}

	for _, p := range r.Players {
		if p.Optimization == nil {
			continue
		}
		o := p.Optimization
		fmt.Fprintf(w, "\nOptimized weights for %s (accuracy %.4f, %+.4f vs current, %d evaluations", p.Player, o.Accuracy, p.Improvement(), o.Evaluations)
		if o.Converged {
			fmt.Fprint(w, ", converged")
		}
		fmt.Fprintln(w, ")")
		for _, rw := range o.Weights.Ranked() {
			fmt.Fprintf(w, "  %-22s %.4f\n", rw.Factor, rw.Weight)
		}
	}

	if r.Saved > 0 {
		fmt.Fprintf(w, "\nSaved weights for %d player(s)\n", r.Saved)
	}
	if r.SaveError != "" {
		fmt.Fprintf(w, "\nWARNING: weights not saved: %s\n", r.SaveError)
	}
}
