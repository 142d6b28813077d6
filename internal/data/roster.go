package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fantasy-backtest/internal/model"
)

// RosterEntry is one player on a fantasy roster.
type RosterEntry struct {
	PlayerName   string             `json:"player_name"`
	PlayerID     string             `json:"player_id,omitempty"`
	MLBTeam      string             `json:"mlb_team"`
	FantasyTeam  string             `json:"fantasy_team"`
	Position     string             `json:"position"`
	Bats         model.Handedness   `json:"bats,omitempty"`
	InjuryStatus model.InjuryStatus `json:"injury_status,omitempty"`
}

const rosterGlob = "yahoo_fantasy_rosters_*.csv"

// LatestRosterPath returns the newest roster export in dir, or "" if none.
// Exports carry a sortable date in their name.
func LatestRosterPath(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, rosterGlob))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

func LoadRoster(path string) ([]RosterEntry, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	if !t.has("player_name", "player", "name") {
		return nil, fmt.Errorf("roster %s has no player_name column", path)
	}

	seen := make(map[string]bool)
	out := make([]RosterEntry, 0, len(t.rows))
	for _, row := range t.rows {
		name := t.get(row, "player_name", "player", "name")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, RosterEntry{
			PlayerName:   name,
			PlayerID:     t.get(row, "player_id", "mlb_id"),
			MLBTeam:      t.get(row, "mlb_team", "team"),
			FantasyTeam:  t.get(row, "fantasy_team", "owner"),
			Position:     t.get(row, "position", "positions"),
			Bats:         model.ParseHandedness(t.get(row, "bats")),
			InjuryStatus: model.InjuryStatus(t.get(row, "injury_status", "status")),
		})
	}
	return out, nil
}

// ResolveRoster loads path, or the newest export in dir when path is "".
// A missing roster is not an error.
func ResolveRoster(dir, path string) ([]RosterEntry, error) {
	if path == "" {
		path = LatestRosterPath(dir)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadRoster(path)
}

// RosterNames lists player names in roster order.
func RosterNames(roster []RosterEntry) []string {
	out := make([]string, len(roster))
	for i, r := range roster {
		out[i] = r.PlayerName
	}
	return out
}
