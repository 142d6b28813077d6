package factor

import (
	"fmt"
	"math"
	"strings"

	"fantasy-backtest/internal/model"
)

// Hitter-friendly and pitcher-friendly parks.
var (
	hitterParks = map[string]bool{
		"coors field":              true,
		"great american ball park": true,
		"fenway park":              true,
	}
	pitcherParks = map[string]bool{
		"oracle park":    true,
		"marlins park":   true,
		"loandepot park": true,
		"petco park":     true,
	}
)

// Day games start before this local time.
const dayGameCutoff = "17:00"

func baselineScorers() []Scorer {
	return []Scorer{
		Func{model.FactorWind, "Wind blowing out helps, blowing in hurts, scaled by speed", scoreWind},
		Func{model.FactorMatchup, "Batter vs. opposing pitcher history (placeholder noise)", scoreMatchup},
		Func{model.FactorHomeAway, "Home field advantage", scoreHomeAway},
		Func{model.FactorPlatoon, "Batter hand vs. pitcher hand", scorePlatoon},
		Func{model.FactorParkFactors, "Venue run environment", scoreParkFactors},
		Func{model.FactorRestDay, "Days of rest since the previous game", scoreRestDay},
		Func{model.FactorInjury, "Roster injury designation", scoreInjury},
		Func{model.FactorUmpire, "Home plate umpire zone (placeholder noise)", scoreUmpire},
		Func{model.FactorTemperature, "Warm air carries the ball", scoreTemperature},
		Func{model.FactorPitchMix, "Pitcher arsenal vs. batter profile (placeholder noise)", scorePitchMix},
		Func{model.FactorLineupPosition, "Batting order slot", scoreLineupPosition},
		Func{model.FactorTimeOfDay, "Day vs. night start", scoreTimeOfDay},
		Func{model.FactorDefensivePositions, "Opposing defensive alignment (placeholder noise)", scoreDefensivePositions},
	}
}

func scoreWind(ctx Context) (float64, error) {
	g := ctx.Game
	if math.IsNaN(g.WindSpeed) || g.WindSpeed < 0 {
		return 0, fmt.Errorf("invalid wind speed %v", g.WindSpeed)
	}
	dir := strings.ToLower(g.WindDirection)
	strength := math.Min(g.WindSpeed/20, 1)
	switch {
	case strings.Contains(dir, "out") || strings.Contains(dir, "center"):
		return strength, nil
	case strings.Contains(dir, "in"):
		return -strength, nil
	default:
		return 0, nil
	}
}

func scoreMatchup(ctx Context) (float64, error) {
	return 0.3 * noise(model.FactorMatchup, ctx), nil
}

func scoreHomeAway(ctx Context) (float64, error) {
	if ctx.Game.IsHome {
		return 0.2, nil
	}
	return -0.1, nil
}

func scorePlatoon(ctx Context) (float64, error) {
	b, p := ctx.Game.BatterHand, ctx.Game.PitcherHand
	if b == "" || p == "" {
		return 0, nil
	}
	if b != p {
		return 0.3, nil
	}
	return -0.2, nil
}

func scoreParkFactors(ctx Context) (float64, error) {
	venue := strings.ToLower(strings.TrimSpace(ctx.Game.Venue))
	switch {
	case hitterParks[venue]:
		return 0.25, nil
	case pitcherParks[venue]:
		return -0.25, nil
	default:
		return 0, nil
	}
}

func scoreRestDay(ctx Context) (float64, error) {
	d := ctx.Game.RestDays
	switch {
	case d < 0:
		return 0, fmt.Errorf("negative rest days %d", d)
	case d == 0:
		return -0.1, nil
	case d == 1:
		return 0.15, nil
	case d >= 3:
		return -0.15, nil
	default:
		return 0, nil
	}
}

func scoreInjury(ctx Context) (float64, error) {
	switch ctx.Game.InjuryStatus {
	case "", model.InjuryHealthy:
		return 0, nil
	case model.InjuryDayToDay:
		return -0.3, nil
	case model.InjuryQuestionable:
		return -0.5, nil
	default:
		return -0.8, nil
	}
}

func scoreUmpire(ctx Context) (float64, error) {
	return 0.1 * noise(model.FactorUmpire, ctx), nil
}

func scoreTemperature(ctx Context) (float64, error) {
	t := ctx.Game.Temperature
	switch {
	case math.IsNaN(t):
		return 0, fmt.Errorf("temperature is NaN")
	case t == 0:
		// unknown
		return 0, nil
	case t >= 80:
		return 0.2, nil
	case t <= 50:
		return -0.2, nil
	default:
		return 0, nil
	}
}

func scorePitchMix(ctx Context) (float64, error) {
	return 0.2 * noise(model.FactorPitchMix, ctx), nil
}

func scoreLineupPosition(ctx Context) (float64, error) {
	slot := ctx.Game.BattingOrder
	switch {
	case slot == 0:
		return 0, nil
	case slot < 0 || slot > 9:
		return 0, fmt.Errorf("batting order %d out of range", slot)
	case slot <= 3:
		return 0.15, nil
	case slot >= 7:
		return -0.15, nil
	default:
		return 0, nil
	}
}

func scoreTimeOfDay(ctx Context) (float64, error) {
	if strings.TrimSpace(ctx.Game.GameTime) == "" {
		return 0, nil
	}
	start, err := parseHHMM(ctx.Game.GameTime)
	if err != nil {
		return 0, err
	}
	cutoff, _ := parseHHMM(dayGameCutoff)
	if inWindow(start, 0, cutoff) {
		return -0.1, nil
	}
	return 0.05, nil
}

func scoreDefensivePositions(ctx Context) (float64, error) {
	return 0.1 * noise(model.FactorDefensivePositions, ctx), nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// start > end wraps across midnight; start == end is empty.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	return tMins >= start || tMins < end
}
