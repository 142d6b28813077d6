package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/config"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/logger"
)

func main() {
	var (
		cfgPath    = flag.String("config", "config.yaml", "Path to YAML config")
		outputPath = flag.String("output", "", "Output snapshot path (default: <data dir>/merged_history.json)")
		fetch      = flag.Bool("fetch", false, "Fetch game logs from the MLB stats API for roster players with a player_id")
		season     = flag.Int("season", 0, "Season to fetch (default: end year)")
		pause      = flag.Duration("pause", 250*time.Millisecond, "Pause between stats API requests")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := logger.InitLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *outputPath == "" {
		*outputPath = cfg.Data.HistoryPath()
	}
	if *outputPath == "" {
		*outputPath = data.GetDefaultHistoryPath(cfg.Data.Dir)
	}

	src := data.Source{
		Dir:        cfg.Data.Dir,
		RosterFile: cfg.Data.RosterPath(),
		StartYear:  cfg.Data.StartYear,
		EndYear:    cfg.Data.EndYearOrCurrent(),
	}
	roster, err := data.ResolveRoster(src.Dir, src.RosterFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load roster")
	}
	log.WithField("players", len(roster)).Info("roster loaded")

	if *fetch {
		year := *season
		if year == 0 {
			year = src.EndYear
		}
		client := data.NewStatsAPIClient(cfg.StatsAPI.BaseURL, cfg.StatsAPI.Timeout)
		client.Cache = data.NewResponseCache(time.Hour)
		if err := fetchSeason(ctx, log, client, roster, src.Dir, year, *pause); err != nil {
			log.WithError(err).Fatal("Failed to fetch game logs")
		}
	}

	ds, err := src.Build(roster)
	if err != nil {
		log.WithError(err).Fatal("Failed to merge history")
	}
	if err := data.SaveHistory(*outputPath, ds.Games, src.StartYear, src.EndYear); err != nil {
		log.WithError(err).Fatal("Failed to save history")
	}

	r := ds.Report
	fmt.Printf("Merged %d game logs into %d games\n", r.Logs, len(ds.Games))
	fmt.Printf("  matched to schedule: %d\n", r.Merged)
	fmt.Printf("  no schedule row:     %d\n", r.Unmatched)
	fmt.Printf("  not final (dropped): %d\n", r.NotFinal)
	fmt.Printf("  duplicates:          %d\n", r.Duplicates)
	fmt.Printf("Saved to %s\n", *outputPath)
}

// fetchSeason downloads the season's game logs for every roster player with
// a player_id and writes them as the season's game log CSV.
func fetchSeason(ctx context.Context, log *logrus.Logger, client *data.StatsAPIClient, roster []data.RosterEntry, dir string, season int, pause time.Duration) error {
	var rows []data.GameLogRow
	fetched, failed := 0, 0
	for _, p := range roster {
		if p.PlayerID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := log.WithFields(logrus.Fields{"player": p.PlayerName, "player_id": p.PlayerID, "season": season})
		got, err := client.FetchGameLog(ctx, p.PlayerID, p.PlayerName, season)
		var apiErr *data.StatsAPIError
		if errors.As(err, &apiErr) && apiErr.Code == "RATE_LIMIT_EXCEEDED" {
			entry.Warn("rate limited, backing off")
			if err := sleep(ctx, 5*time.Second); err != nil {
				return err
			}
			got, err = client.FetchGameLog(ctx, p.PlayerID, p.PlayerName, season)
		}
		if err != nil {
			failed++
			entry.WithError(err).Warn("could not fetch game log")
			continue
		}
		rows = append(rows, got...)
		fetched++
		entry.WithField("games", len(got)).Debug("fetched game log")
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	if fetched == 0 {
		return fmt.Errorf("no game logs fetched (%d failed); roster needs a player_id column", failed)
	}

	path := filepath.Join(dir, data.GameLogFileName(season))
	if err := data.WriteGameLogCSV(path, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"players": fetched, "failed": failed, "rows": len(rows), "path": path}).Info("wrote game logs")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
