package backtest

import (
	"sort"
	"strings"

	"fantasy-backtest/internal/model"
)

// SelectGames returns the games explicitly linked to player, ordered by date
// then game id. Names match case-insensitively after trimming.
func SelectGames(player string, games []model.GameContext) []model.GameContext {
	want := normalizeName(player)
	if want == "" {
		return nil
	}
	var out []model.GameContext
	for _, g := range games {
		if normalizeName(g.Player) == want {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

// Players lists distinct player names in first-seen order.
func Players(games []model.GameContext) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range games {
		k := normalizeName(g.Player)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, strings.TrimSpace(g.Player))
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
