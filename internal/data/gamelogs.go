package data

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// GameLogRow is one player's box score line for one game.
type GameLogRow struct {
	PlayerID   string
	PlayerName string
	GamePK     string
	Date       time.Time
	IsHome     bool
	Opponent   string

	BattingOrder int
	BatterHand   model.Handedness
	InjuryStatus model.InjuryStatus

	Stats model.CountingStats
}

// GameLogFileName is the per-season game log file name.
func GameLogFileName(year int) string {
	return fmt.Sprintf("mlb_game_logs_%d.csv", year)
}

// LoadGameLogs reads one game log CSV. Rows with unparseable values are
// skipped and counted in the returned skip total.
func LoadGameLogs(path string) ([]GameLogRow, int, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read game logs: %w", err)
	}
	log := logger.WithComponent("data").WithField("path", path)

	out := make([]GameLogRow, 0, len(t.rows))
	skipped := 0
	for i, row := range t.rows {
		r, err := gameLogRow(t, row)
		if err != nil {
			skipped++
			log.WithField("row", i+2).WithError(err).Debug("skipping game log row")
			continue
		}
		out = append(out, r)
	}
	return out, skipped, nil
}

// LoadGameLogRange reads every season in [startYear, endYear] from dir.
func LoadGameLogRange(dir string, startYear, endYear int) ([]GameLogRow, int) {
	log := logger.WithComponent("data")
	var out []GameLogRow
	skipped := 0
	for year := startYear; year <= endYear; year++ {
		path := filepath.Join(dir, GameLogFileName(year))
		if _, err := os.Stat(path); err != nil {
			log.WithField("path", path).Debug("game logs not found")
			continue
		}
		rows, n, err := LoadGameLogs(path)
		if err != nil {
			log.WithError(err).Warn("could not load game logs")
			continue
		}
		log.WithField("season", year).WithField("rows", len(rows)).Info("loaded game logs")
		out = append(out, rows...)
		skipped += n
	}
	return out, skipped
}

func gameLogRow(t *table, row []string) (GameLogRow, error) {
	name := t.get(row, "player_name", "player", "name")
	if name == "" {
		return GameLogRow{}, fmt.Errorf("missing player name")
	}
	date, err := parseDate(t.get(row, "game_date", "date"))
	if err != nil {
		return GameLogRow{}, err
	}

	r := GameLogRow{
		PlayerID:     t.get(row, "player_id"),
		PlayerName:   name,
		GamePK:       t.get(row, "game_pk", "game_id"),
		Date:         date,
		IsHome:       parseBool(t.get(row, "is_home")),
		Opponent:     t.get(row, "opponent"),
		BatterHand:   model.ParseHandedness(t.get(row, "bats", "batter_hand")),
		InjuryStatus: model.InjuryStatus(t.get(row, "injury_status")),
	}

	fields := []struct {
		dst   *int
		names []string
	}{
		{&r.BattingOrder, []string{"batting_order"}},
		{&r.Stats.AtBats, []string{"ab", "at_bats"}},
		{&r.Stats.Hits, []string{"h", "hits"}},
		{&r.Stats.Doubles, []string{"2b", "doubles"}},
		{&r.Stats.Triples, []string{"3b", "triples"}},
		{&r.Stats.HomeRuns, []string{"hr", "home_runs"}},
		{&r.Stats.RBI, []string{"rbi"}},
		{&r.Stats.Runs, []string{"r", "runs"}},
		{&r.Stats.StolenBases, []string{"sb", "stolen_bases"}},
		{&r.Stats.Walks, []string{"bb", "walks"}},
		{&r.Stats.Strikeouts, []string{"so", "strikeouts"}},
	}
	for _, f := range fields {
		v, err := parseInt(t.get(row, f.names...))
		if err != nil {
			return GameLogRow{}, fmt.Errorf("%s: %w", f.names[0], err)
		}
		*f.dst = v
	}
	// Batting order is sometimes reported as 100, 200, ... 900.
	if r.BattingOrder >= 100 {
		r.BattingOrder /= 100
	}
	return r, nil
}
