package data

import (
	"sort"
	"strings"

	"fantasy-backtest/internal/model"
)

// firstGameRestDays is assumed for a player's first game in the history.
const firstGameRestDays = 3

// MergeReport counts what happened to each game log row during BuildHistory.
type MergeReport struct {
	Logs       int `json:"logs"`
	Merged     int `json:"merged"`
	Unmatched  int `json:"unmatched"`
	NotFinal   int `json:"not_final"`
	Duplicates int `json:"duplicates"`
}

// BuildHistory joins game logs with the schedule, roster and stadium weather
// into per-player game contexts.
//
// Logs are matched to schedule rows by game_pk, falling back to date plus
// opponent. Logs for games that were not final are dropped. Logs with no
// schedule row are kept with whatever the log and roster provide.
func BuildHistory(schedule []ScheduleGame, logs []GameLogRow, roster []RosterEntry, weather map[string]StadiumWeather) ([]model.GameContext, MergeReport) {
	byPK := make(map[string]*ScheduleGame, len(schedule))
	// Doubleheaders put two games under one date|team key, in start order.
	byDateTeam := make(map[string][]*ScheduleGame, 2*len(schedule))
	for i := range schedule {
		g := &schedule[i]
		if g.GamePK != "" {
			byPK[g.GamePK] = g
		}
		day := g.Date.Format("2006-01-02")
		for _, team := range []string{g.HomeTeam, g.AwayTeam} {
			k := day + "|" + teamKey(team)
			byDateTeam[k] = append(byDateTeam[k], g)
		}
	}
	for _, games := range byDateTeam {
		sort.SliceStable(games, func(i, j int) bool { return games[i].LocalTime < games[j].LocalTime })
	}
	// next hands a player's same-day logs the games of that day in turn.
	next := make(map[string]int)

	players := make(map[string]RosterEntry, len(roster))
	for _, r := range roster {
		players[teamKey(r.PlayerName)] = r
	}

	report := MergeReport{Logs: len(logs)}
	seen := make(map[string]bool, len(logs))
	out := make([]model.GameContext, 0, len(logs))

	for _, l := range logs {
		sg := byPK[l.GamePK]
		if sg == nil && l.Opponent != "" {
			k := l.Date.Format("2006-01-02") + "|" + teamKey(l.Opponent)
			if games := byDateTeam[k]; len(games) > 0 {
				turn := teamKey(l.PlayerName) + "|" + k
				i := next[turn]
				if i >= len(games) {
					i = len(games) - 1
				}
				next[turn]++
				sg = games[i]
			}
		}
		if sg != nil && sg.Status != "" && !sg.IsFinal() {
			report.NotFinal++
			continue
		}

		gc := model.GameContext{
			GameID:       l.GamePK,
			Player:       l.PlayerName,
			Date:         l.Date,
			Opponent:     l.Opponent,
			IsHome:       l.IsHome,
			BatterHand:   l.BatterHand,
			BattingOrder: l.BattingOrder,
			InjuryStatus: l.InjuryStatus,
			Stats:        l.Stats,
		}

		r, onRoster := players[teamKey(l.PlayerName)]
		if onRoster {
			if gc.BatterHand == "" {
				gc.BatterHand = r.Bats
			}
			if gc.InjuryStatus == "" {
				gc.InjuryStatus = r.InjuryStatus
			}
		}

		if sg != nil {
			if gc.GameID == "" {
				gc.GameID = sg.GamePK
			}
			gc.Status = sg.Status
			gc.Venue = sg.Venue
			gc.GameTime = sg.LocalTime
			gc.Temperature = sg.Temperature
			gc.WindSpeed = sg.WindSpeed
			gc.WindDirection = sg.WindDirection
			if gc.IsHome {
				gc.Team, gc.PitcherHand = sg.HomeTeam, sg.AwayPitcherHand
				if gc.Opponent == "" {
					gc.Opponent = sg.AwayTeam
				}
			} else {
				gc.Team, gc.PitcherHand = sg.AwayTeam, sg.HomePitcherHand
				if gc.Opponent == "" {
					gc.Opponent = sg.HomeTeam
				}
			}
		}
		if gc.Team == "" && onRoster {
			gc.Team = r.MLBTeam
		}
		if gc.Temperature == 0 && gc.Venue != "" {
			if w, ok := weather[venueKey(gc.Venue)]; ok {
				gc.Temperature = w.Temperature
				if gc.WindSpeed == 0 && gc.WindDirection == "" {
					gc.WindSpeed = w.WindSpeed
					gc.WindDirection = w.WindDirection
				}
			}
		}

		dedup := teamKey(gc.Player) + "|" + gc.Key()
		if seen[dedup] {
			report.Duplicates++
			continue
		}
		seen[dedup] = true
		if sg != nil {
			report.Merged++
		} else {
			report.Unmatched++
		}
		out = append(out, gc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := teamKey(out[i].Player), teamKey(out[j].Player)
		if pi != pj {
			return pi < pj
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Key() < out[j].Key()
	})
	assignRestDays(out)
	return out, report
}

// assignRestDays fills RestDays from the gap to the player's previous game.
// games must be grouped by player and sorted by date.
func assignRestDays(games []model.GameContext) {
	for i := range games {
		if i == 0 || teamKey(games[i-1].Player) != teamKey(games[i].Player) {
			games[i].RestDays = firstGameRestDays
			continue
		}
		gap := int(games[i].Date.Sub(games[i-1].Date).Hours()/24) - 1
		if gap < 0 {
			gap = 0
		}
		games[i].RestDays = gap
	}
}

func teamKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
