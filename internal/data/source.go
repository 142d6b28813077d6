package data

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// ErrNoHistory is returned when neither a snapshot nor raw season files exist.
var ErrNoHistory = errors.New("no historical game data found")

// Source locates the historical inputs on disk.
type Source struct {
	Dir         string
	HistoryFile string // merged snapshot; "" means Dir/merged_history.json
	RosterFile  string // "" means the newest yahoo_fantasy_rosters_*.csv in Dir
	StartYear   int
	EndYear     int
}

// Dataset is everything a suite run needs.
type Dataset struct {
	Games        []model.GameContext
	Roster       []RosterEntry
	Report       MergeReport
	FromSnapshot bool
}

// Load prefers the merged snapshot and rebuilds from raw season files when
// it is absent.
func (s Source) Load() (*Dataset, error) {
	log := logger.WithComponent("data")

	roster, err := ResolveRoster(s.Dir, s.RosterFile)
	if err != nil {
		log.WithError(err).Warn("could not load roster")
	}

	histPath := s.HistoryFile
	if histPath == "" {
		histPath = GetDefaultHistoryPath(s.Dir)
	}
	if h, err := LoadHistory(histPath); err == nil {
		log.WithField("path", histPath).WithField("games", len(h.Games)).Info("loaded history snapshot")
		return &Dataset{Games: h.Games, Roster: roster, FromSnapshot: true}, nil
	} else if !os.IsNotExist(err) {
		log.WithError(err).Warn("history snapshot unreadable, rebuilding from season files")
	}

	return s.Build(roster)
}

// Build merges the raw season files for [StartYear, EndYear].
func (s Source) Build(roster []RosterEntry) (*Dataset, error) {
	log := logger.WithComponent("data")

	logs, skipped := LoadGameLogRange(s.Dir, s.StartYear, s.EndYear)
	if len(logs) == 0 {
		return nil, ErrNoHistory
	}
	schedule := LoadSchedules(s.Dir, s.StartYear, s.EndYear)

	weather := map[string]StadiumWeather{}
	wpath := filepath.Join(s.Dir, StadiumWeatherFile)
	if _, err := os.Stat(wpath); err == nil {
		if w, err := LoadStadiumWeather(wpath); err == nil {
			weather = w
		} else {
			log.WithError(err).Warn("could not load stadium weather")
		}
	}

	games, report := BuildHistory(schedule, logs, roster, weather)
	log.WithFields(logrus.Fields{
		"logs":        report.Logs,
		"merged":      report.Merged,
		"unmatched":   report.Unmatched,
		"not_final":   report.NotFinal,
		"duplicates":  report.Duplicates,
		"bad_rows":    skipped,
		"games":       len(games),
		"schedule":    len(schedule),
		"roster_size": len(roster),
	}).Info("merged history")
	if len(games) == 0 {
		return nil, ErrNoHistory
	}
	return &Dataset{Games: games, Roster: roster, Report: report}, nil
}
