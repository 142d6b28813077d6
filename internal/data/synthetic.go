package data

import (
	"fmt"
	"math/rand"
	"time"

	"fantasy-backtest/internal/model"
)

var (
	syntheticVenues   = []string{"Coors Field", "Oracle Park", "Yankee Stadium", "Fenway Park", "Petco Park", "Great American Ball Park"}
	syntheticWinds    = []string{"Out To CF", "In From LF", "Calm", "L To R", "Out To RF"}
	syntheticOpponent = []string{"BOS", "TOR", "TB", "BAL", "HOU", "LAD", "SD", "SF"}
)

// SyntheticSeason generates n plausible games for player, one per day from
// opening day 2024. Output depends only on the arguments.
func SyntheticSeason(player string, n int, seed int64) []model.GameContext {
	r := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)
	hand := []model.Handedness{model.HandLeft, model.HandRight, model.HandSwitch}[r.Intn(3)]
	order := 1 + r.Intn(9)

	games := make([]model.GameContext, 0, n)
	day := 0
	for i := 0; i < n; i++ {
		rest := 0
		if r.Float64() < 0.15 {
			rest = 1 + r.Intn(2)
		}
		day += 1 + rest

		ab := 3 + r.Intn(3)
		hits := 0
		for j := 0; j < ab; j++ {
			if r.Float64() < 0.26 {
				hits++
			}
		}
		var s model.CountingStats
		s.AtBats = ab
		s.Hits = hits
		for j := 0; j < hits; j++ {
			switch x := r.Float64(); {
			case x < 0.14:
				s.HomeRuns++
			case x < 0.16:
				s.Triples++
			case x < 0.36:
				s.Doubles++
			}
		}
		s.RBI = s.HomeRuns + r.Intn(hits+1)
		s.Runs = s.HomeRuns + r.Intn(2)
		s.Walks = r.Intn(2)
		s.Strikeouts = r.Intn(ab)
		if r.Float64() < 0.08 {
			s.StolenBases = 1
		}

		injury := model.InjuryHealthy
		if r.Float64() < 0.05 {
			injury = model.InjuryDayToDay
		}

		games = append(games, model.GameContext{
			GameID:        fmt.Sprintf("%d", 745000+int(seed%1000)*1000+i),
			Player:        player,
			Team:          "NYY",
			Date:          start.AddDate(0, 0, day),
			GameTime:      []string{"13:05", "16:10", "19:05", "19:10"}[r.Intn(4)],
			Opponent:      syntheticOpponent[r.Intn(len(syntheticOpponent))],
			Venue:         syntheticVenues[r.Intn(len(syntheticVenues))],
			IsHome:        r.Intn(2) == 0,
			Status:        "Final",
			Temperature:   48 + r.Float64()*42,
			WindSpeed:     r.Float64() * 18,
			WindDirection: syntheticWinds[r.Intn(len(syntheticWinds))],
			BatterHand:    hand,
			PitcherHand:   []model.Handedness{model.HandLeft, model.HandRight, model.HandRight}[r.Intn(3)],
			BattingOrder:  order,
			InjuryStatus:  injury,
			RestDays:      rest,
			Stats:         s,
		})
	}
	return games
}

// SyntheticLeague generates a season for each player, seeded from seed.
func SyntheticLeague(players []string, n int, seed int64) []model.GameContext {
	var out []model.GameContext
	for i, p := range players {
		out = append(out, SyntheticSeason(p, n, seed+int64(i)*7919)...)
	}
	return out
}
