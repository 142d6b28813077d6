package data

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// ScheduleGame is one row of mlb_<year>_schedule.csv.
type ScheduleGame struct {
	GamePK    string
	Date      time.Time
	LocalTime string // "HH:MM", "" when unknown
	Status    string
	HomeTeam  string
	AwayTeam  string
	Venue     string

	Temperature   float64 // F, 0 when unknown
	WindSpeed     float64 // mph
	WindDirection string

	HomePitcherHand model.Handedness
	AwayPitcherHand model.Handedness
}

// IsFinal reports whether the game was completed.
func (g ScheduleGame) IsFinal() bool {
	s := strings.ToLower(g.Status)
	return s == "final" || strings.HasPrefix(s, "final:") || s == "game over" || s == "completed early"
}

// ScheduleFileName is the per-season schedule file name.
func ScheduleFileName(year int) string {
	return fmt.Sprintf("mlb_%d_schedule.csv", year)
}

// LoadSchedule reads one schedule CSV. Rows without a date are skipped.
func LoadSchedule(path string) ([]ScheduleGame, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}
	log := logger.WithComponent("data").WithField("path", path)

	out := make([]ScheduleGame, 0, len(t.rows))
	for i, row := range t.rows {
		g, err := scheduleRow(t, row)
		if err != nil {
			log.WithField("row", i+2).WithError(err).Debug("skipping schedule row")
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// LoadSchedules reads every season in [startYear, endYear] from dir. Missing
// seasons are logged and skipped.
func LoadSchedules(dir string, startYear, endYear int) []ScheduleGame {
	log := logger.WithComponent("data")
	var out []ScheduleGame
	for year := startYear; year <= endYear; year++ {
		path := filepath.Join(dir, ScheduleFileName(year))
		if _, err := os.Stat(path); err != nil {
			log.WithField("path", path).Debug("schedule not found")
			continue
		}
		games, err := LoadSchedule(path)
		if err != nil {
			log.WithError(err).Warn("could not load schedule")
			continue
		}
		log.WithField("season", year).WithField("games", len(games)).Info("loaded schedule")
		out = append(out, games...)
	}
	return out
}

func scheduleRow(t *table, row []string) (ScheduleGame, error) {
	date, err := parseDate(t.get(row, "game_date", "official_date", "date"))
	if err != nil {
		return ScheduleGame{}, err
	}
	g := ScheduleGame{
		GamePK:          t.get(row, "game_pk", "game_id", "gamepk"),
		Date:            date,
		Status:          t.get(row, "status", "game_status", "detailed_state"),
		HomeTeam:        t.get(row, "home_team", "home_name"),
		AwayTeam:        t.get(row, "away_team", "away_name"),
		Venue:           t.get(row, "venue_name", "venue"),
		HomePitcherHand: model.ParseHandedness(t.get(row, "home_pitcher_hand", "home_probable_pitcher_hand")),
		AwayPitcherHand: model.ParseHandedness(t.get(row, "away_pitcher_hand", "away_probable_pitcher_hand")),
	}
	g.LocalTime = localStart(t.get(row, "game_time", "local_time"), t.get(row, "game_datetime"))

	if v := t.get(row, "temperature", "temp"); v != "" {
		g.Temperature, err = parseFloat(v)
		if err != nil {
			return ScheduleGame{}, err
		}
	} else if v := t.get(row, "weather"); v != "" {
		g.Temperature = parseWeatherTemp(v)
	}
	if v := t.get(row, "wind_speed"); v != "" {
		g.WindSpeed, err = parseFloat(v)
		if err != nil {
			return ScheduleGame{}, err
		}
		g.WindDirection = t.get(row, "wind_direction")
	} else if v := t.get(row, "wind"); v != "" {
		g.WindSpeed, g.WindDirection = parseWind(v)
	}
	return g, nil
}

var (
	windRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*mph\s*,?\s*(.*)$`)
	tempRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*degrees`)
	hhmmRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])?$`)
)

// parseWind reads box-score style wind, e.g. "8 mph, Out To CF".
func parseWind(s string) (float64, string) {
	m := windRe.FindStringSubmatch(s)
	if m == nil {
		return 0, strings.TrimSpace(s)
	}
	speed, _ := parseFloat(m[1])
	return speed, strings.TrimSpace(strings.TrimSuffix(m[2], "."))
}

// parseWeatherTemp reads box-score style weather, e.g. "72 degrees, Sunny".
func parseWeatherTemp(s string) float64 {
	m := tempRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	t, _ := parseFloat(m[1])
	return t
}

// localStart prefers an explicit local time column and falls back to the UTC
// timestamp shown in US Eastern time.
func localStart(local, utc string) string {
	if local != "" {
		if m := hhmmRe.FindStringSubmatch(strings.TrimSpace(local)); m != nil {
			var h, min int
			fmt.Sscanf(m[1], "%d", &h)
			fmt.Sscanf(m[2], "%d", &min)
			switch strings.ToLower(m[3]) {
			case "pm":
				if h < 12 {
					h += 12
				}
			case "am":
				if h == 12 {
					h = 0
				}
			}
			return fmt.Sprintf("%02d:%02d", h, min)
		}
	}
	if utc == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, utc)
	if err != nil {
		return ""
	}
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		ts = ts.In(loc)
	}
	return ts.Format("15:04")
}
