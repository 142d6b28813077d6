package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fantasy-backtest/internal/analysis"
	"fantasy-backtest/internal/app"
	"fantasy-backtest/internal/config"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/scheduler"
	"fantasy-backtest/internal/tuner"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors that should print usage and exit 2.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "backtest":
		err = cmdBacktest(ctx, args[1:])
	case "weights":
		err = cmdWeights(args[1:])
	case "batch":
		err = cmdBatch(ctx, args[1:])
	case "schedule":
		err = cmdSchedule(ctx, args[1:])
	case "help", "-h", "--help":
		usage()
		return exitOK
	default:
		usage()
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitError
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest [--player NAME] [--optimize] [--save] [--config FILE] [--ledger-dir DIR] [--workers N] [--seed N]")
	fmt.Println("  cli weights show [--player NAME]")
	fmt.Println("  cli weights list")
	fmt.Println("  cli weights reset --player NAME")
	fmt.Println("  cli batch --id ID [--player NAME] [--optimize] [--save]")
	fmt.Println("  cli schedule [--cron SPEC] [--optimize] [--save] [--now]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - without --player every roster player is analyzed")
	fmt.Println("  - --save stores optimized weights as per-player overrides")
	fmt.Println("  - batch checkpoints each player; re-running the same --id resumes it")
}

func open(cfgPath string) (*app.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func cmdBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	player := fs.String("player", "", "Analyze only this player")
	optimize := fs.Bool("optimize", false, "Search for better weights")
	save := fs.Bool("save", false, "Save optimized weights")
	ledgerDir := fs.String("ledger-dir", "", "Write per-player ledger CSVs here")
	workers := fs.Int("workers", 0, "Optimizer workers (default from config)")
	seed := fs.Int64("seed", 0, "Optimizer seed (default from config)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *save && !*optimize {
		return fmt.Errorf("%w: --save requires --optimize", errUsage)
	}

	a, err := open(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	t := a.Tuner
	if s, changed := settingsOverrides(fs, a.Optimizer.Settings(), *workers, *seed); changed {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		t = t.WithOptimizer(a.Optimizer.WithSettings(s))
	}

	games, roster, err := a.LoadHistory()
	if err != nil {
		return err
	}

	report, err := t.Run(ctx, games, data.RosterNames(roster), a.Options(*player, *optimize, *save, *ledgerDir))
	if report != nil {
		analysis.WriteReport(os.Stdout, report)
	}
	return err
}

// settingsOverrides applies --workers and --seed only when given on the
// command line, so an explicit 0 still overrides the config.
func settingsOverrides(fs *flag.FlagSet, s optimizer.Settings, workers int, seed int64) (optimizer.Settings, bool) {
	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			s.Workers = workers
			changed = true
		case "seed":
			s.Seed = seed
			changed = true
		}
	})
	return s, changed
}

func cmdWeights(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: weights needs show, list or reset", errUsage)
	}
	fs := flag.NewFlagSet("weights "+args[0], flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	player := fs.String("player", "", "Player name")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	a, err := open(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	ws := a.Weights

	switch args[0] {
	case "show":
		label := "global"
		if *player != "" {
			label = *player
			if !ws.HasOverride(*player) {
				label += " (no override, using global)"
			}
		}
		fmt.Printf("Weights for %s\n", label)
		printWeights(ws.Load(*player))
	case "list":
		players := ws.Players()
		if len(players) == 0 {
			fmt.Println("No player overrides")
			return nil
		}
		fmt.Printf("%d player override(s):\n", len(players))
		for _, p := range players {
			fmt.Printf("  %s\n", p)
		}
	case "reset":
		if *player == "" {
			return fmt.Errorf("%w: weights reset requires --player", errUsage)
		}
		if err := ws.Reset(*player); err != nil {
			return err
		}
		fmt.Printf("Reset %s to global weights\n", *player)
	default:
		return fmt.Errorf("%w: unknown weights command %q", errUsage, args[0])
	}
	return nil
}

func printWeights(w model.FactorWeights) {
	for _, rw := range w.Ranked() {
		fmt.Printf("  %-22s %.4f\n", rw.Factor, rw.Weight)
	}
	fmt.Printf("  %-22s %.4f\n", "total", w.Sum())
}

func cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	id := fs.String("id", "", "Batch id; re-use it to resume")
	player := fs.String("player", "", "Only this player")
	optimize := fs.Bool("optimize", false, "Search for better weights")
	save := fs.Bool("save", false, "Save optimized weights")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *id == "" {
		return fmt.Errorf("%w: batch requires --id", errUsage)
	}

	a, err := open(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	runner, err := a.BatchRunner()
	if err != nil {
		return err
	}

	games, roster, err := a.LoadHistory()
	if err != nil {
		return err
	}
	players, err := tuner.ResolvePlayers(games, data.RosterNames(roster), *player)
	if err != nil {
		return err
	}

	opts := a.Options("", *optimize, *save, "")
	sum, err := runner.Run(ctx, *id, games, players, opts)
	if sum != nil {
		analysis.WriteReport(os.Stdout, &tuner.Report{
			RunID:    sum.RunID,
			Mode:     opts.Mode(),
			Players:  sum.Players,
			Saved:    sum.Saved,
			Duration: sum.Duration,
		})
		fmt.Printf("\nBatch %s: %d enqueued, %d resumed, %d done, %d failed\n", sum.Batch, sum.Enqueued, sum.Resumed, sum.Done, sum.Failed)
	}
	return err
}

func cmdSchedule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	spec := fs.String("cron", "", "Cron spec with seconds (default from config)")
	optimize := fs.Bool("optimize", true, "Search for better weights")
	save := fs.Bool("save", true, "Save optimized weights")
	now := fs.Bool("now", false, "Also run once at startup")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	a, err := open(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	runner, err := a.BatchRunner()
	if err != nil {
		return err
	}
	if *spec == "" {
		*spec = a.Config.Schedule.RetuneCron
	}

	load := func() ([]model.GameContext, []string, error) {
		games, roster, err := a.LoadHistory()
		if err != nil {
			return nil, nil, err
		}
		return games, data.RosterNames(roster), nil
	}
	s := scheduler.New(ctx, runner, load, a.Options("", *optimize, *save, ""), a.Config.Schedule.BatchPrefix)
	if err := s.Register(*spec); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *now {
		if _, err := s.RunNow(); err != nil {
			a.Log.WithError(err).Error("initial retune failed")
		}
	}

	s.Start()
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}
