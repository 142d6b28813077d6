package model

import (
	"strings"
	"time"
)

// Handedness is a batter's or pitcher's throwing/hitting side.
type Handedness string

const (
	HandLeft   Handedness = "L"
	HandRight  Handedness = "R"
	HandSwitch Handedness = "S"
)

// ParseHandedness accepts "L", "left", "R", "right", "S", "switch", "B" (both).
// Unknown values return "".
func ParseHandedness(s string) Handedness {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LEFT":
		return HandLeft
	case "R", "RIGHT":
		return HandRight
	case "S", "B", "SWITCH", "BOTH":
		return HandSwitch
	default:
		return ""
	}
}

// InjuryStatus mirrors the roster designations used by fantasy providers.
type InjuryStatus string

const (
	InjuryHealthy      InjuryStatus = "Healthy"
	InjuryDayToDay     InjuryStatus = "Day-to-Day"
	InjuryQuestionable InjuryStatus = "Questionable"
	InjuryOut          InjuryStatus = "Out"
)

// CountingStats are the box-score totals a hitter accumulated in one game.
type CountingStats struct {
	AtBats      int `json:"at_bats"`
	Hits        int `json:"hits"`
	Doubles     int `json:"doubles"`
	Triples     int `json:"triples"`
	HomeRuns    int `json:"home_runs"`
	RBI         int `json:"rbi"`
	Runs        int `json:"runs"`
	StolenBases int `json:"stolen_bases"`
	Walks       int `json:"walks"`
	Strikeouts  int `json:"strikeouts"`
}

// Singles is hits minus extra-base hits. It can be negative for malformed rows;
// PointsScheme.Points rejects those.
func (s CountingStats) Singles() int {
	return s.Hits - s.Doubles - s.Triples - s.HomeRuns
}

// GameContext is one player's participation in one game, with everything the
// factor heuristics read. Treat it as an immutable value.
//
// Units:
// - Temperature: degrees Fahrenheit
// - WindSpeed: mph
// - GameTime: local "HH:MM"
type GameContext struct {
	GameID string    `json:"game_id"`
	Player string    `json:"player"`
	Team   string    `json:"team"`
	Date   time.Time `json:"game_date"`

	GameTime string `json:"game_time,omitempty"`
	Opponent string `json:"opponent"`
	Venue    string `json:"venue"`
	IsHome   bool   `json:"is_home"`
	Status   string `json:"status,omitempty"`

	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection string  `json:"wind_direction,omitempty"`

	BatterHand   Handedness   `json:"batter_hand,omitempty"`
	PitcherHand  Handedness   `json:"pitcher_hand,omitempty"`
	BattingOrder int          `json:"batting_order,omitempty"`
	InjuryStatus InjuryStatus `json:"injury_status,omitempty"`
	RestDays     int          `json:"rest_days"`

	Stats CountingStats `json:"stats"`
}

// Key identifies the game for caching. It falls back to date+team when the
// source rows carried no game id.
func (g GameContext) Key() string {
	if g.GameID != "" {
		return g.GameID
	}
	return g.Date.Format("2006-01-02") + ":" + strings.ToUpper(g.Team) + ":" + strings.ToUpper(g.Opponent)
}

// Hour returns the local start hour parsed from GameTime, or -1 when unknown.
func (g GameContext) Hour() int {
	t, err := time.Parse("15:04", strings.TrimSpace(g.GameTime))
	if err != nil {
		return -1
	}
	return t.Hour()
}

// HistoryFile is the merged history snapshot written by merge-history.
type HistoryFile struct {
	GeneratedAt time.Time     `json:"generated_at"`
	StartYear   int           `json:"start_year"`
	EndYear     int           `json:"end_year"`
	Games       []GameContext `json:"games"`
}
