package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"fantasy-backtest/internal/analysis"
	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/config"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/factor"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/scoring"
	"fantasy-backtest/internal/tuner"
	"fantasy-backtest/internal/weights"
)

// Demo:
// - Generate a synthetic season for a few players
// - Backtest them with the default weights
// - Optimize the weights and show how the pieces fit together
func main() {
	players := flag.String("players", "Juan Soto,Aaron Judge,Mookie Betts", "Comma-separated player names")
	games := flag.Int("games", 40, "Games per player")
	seed := flag.Int64("seed", 42, "Seed for the synthetic season and the optimizer")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	optimize := flag.Bool("optimize", true, "Run the weight optimizer")
	ledgerDir := flag.String("ledger-dir", "", "Optional directory for ledger CSVs")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	logger.InitLogger(cfg.Log.Level, cfg.Log.Format)

	names := strings.Split(*players, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	history := data.SyntheticLeague(names, *games, *seed)
	fmt.Printf("Generated %d games for %d players\n\n", len(history), len(names))

	weightsDir, err := os.MkdirTemp("", "fantasy-demo-weights-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(weightsDir)

	settings := cfg.Optimizer.ToSettings()
	settings.Seed = *seed

	engine := backtest.New(scoring.NewScorer(factor.Baseline(), scoring.NewCache()), cfg.Scoring)
	opt := optimizer.NewWeightOptimizer(engine, settings).WithDefaultBounds(cfg.Optimizer.ResolvedDefaultBounds())
	t := tuner.New(engine, opt, weights.NewStore(weightsDir), nil)

	report, err := t.Run(context.Background(), history, names, tuner.Options{
		Optimize:  *optimize,
		LedgerDir: *ledgerDir,
		Bounds:    cfg.Optimizer.Bounds,
	})
	if err != nil {
		panic(err)
	}
	analysis.WriteReport(os.Stdout, report)

	stats := engine.Scorer().CacheStats()
	fmt.Printf("\nFactor score cache: %d hits, %d misses\n", stats.Hits, stats.Misses)
}
