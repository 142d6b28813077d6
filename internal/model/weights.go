package model

import (
	"fmt"
	"math"
	"sort"
)

// Canonical factor names.
const (
	FactorWind               = "wind"
	FactorMatchup            = "matchup"
	FactorHomeAway           = "home_away"
	FactorPlatoon            = "platoon"
	FactorParkFactors        = "park_factors"
	FactorRestDay            = "rest_day"
	FactorInjury             = "injury"
	FactorUmpire             = "umpire"
	FactorTemperature        = "temperature"
	FactorPitchMix           = "pitch_mix"
	FactorLineupPosition     = "lineup_position"
	FactorTimeOfDay          = "time_of_day"
	FactorDefensivePositions = "defensive_positions"
)

// DefaultFactorWeight is used for a factor that has neither an explicit weight
// nor an entry in the default table.
const DefaultFactorWeight = 0.05

var factorOrder = []string{
	FactorWind,
	FactorMatchup,
	FactorHomeAway,
	FactorPlatoon,
	FactorParkFactors,
	FactorRestDay,
	FactorInjury,
	FactorUmpire,
	FactorTemperature,
	FactorPitchMix,
	FactorLineupPosition,
	FactorTimeOfDay,
	FactorDefensivePositions,
}

var defaultWeights = map[string]float64{
	FactorWind:               0.10,
	FactorMatchup:            0.15,
	FactorHomeAway:           0.12,
	FactorPlatoon:            0.10,
	FactorParkFactors:        0.08,
	FactorRestDay:            0.08,
	FactorInjury:             0.12,
	FactorUmpire:             0.05,
	FactorTemperature:        0.05,
	FactorPitchMix:           0.05,
	FactorLineupPosition:     0.05,
	FactorTimeOfDay:          0.03,
	FactorDefensivePositions: 0.02,
}

// FactorNames returns the canonical factor order.
func FactorNames() []string {
	out := make([]string, len(factorOrder))
	copy(out, factorOrder)
	return out
}

// DefaultWeightFor returns the documented default for name.
func DefaultWeightFor(name string) float64 {
	if w, ok := defaultWeights[name]; ok {
		return w
	}
	return DefaultFactorWeight
}

// FactorWeights maps factor name to a non-negative weight. Weights are not
// required to sum to 1; see Normalized.
type FactorWeights map[string]float64

// DefaultWeights returns a fresh copy of the default table.
func DefaultWeights() FactorWeights {
	out := make(FactorWeights, len(defaultWeights))
	for k, v := range defaultWeights {
		out[k] = v
	}
	return out
}

// Get returns the weight for name, falling back to the default table.
func (w FactorWeights) Get(name string) float64 {
	if v, ok := w[name]; ok {
		return v
	}
	return DefaultWeightFor(name)
}

func (w FactorWeights) Clone() FactorWeights {
	out := make(FactorWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// WithDefaults returns a copy with every default factor present.
func (w FactorWeights) WithDefaults() FactorWeights {
	out := DefaultWeights()
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Sum adds weights in sorted-key order so the result is reproducible.
func (w FactorWeights) Sum() float64 {
	total := 0.0
	for _, k := range w.Names() {
		total += w[k]
	}
	return total
}

// Normalized divides every weight by the sum. A non-positive sum returns an
// unchanged copy.
func (w FactorWeights) Normalized() FactorWeights {
	out := w.Clone()
	total := w.Sum()
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return out
	}
	for k, v := range out {
		out[k] = v / total
	}
	return out
}

// Names returns the keys sorted alphabetically.
func (w FactorWeights) Names() []string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Vector resolves weights for names in order, using defaults for missing keys.
func (w FactorWeights) Vector(names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = w.Get(n)
	}
	return out
}

// WeightsFromVector zips names and values into a FactorWeights.
func WeightsFromVector(names []string, x []float64) FactorWeights {
	out := make(FactorWeights, len(names))
	for i, n := range names {
		if i < len(x) {
			out[n] = x[i]
		}
	}
	return out
}

func (w FactorWeights) Validate() error {
	for _, k := range w.Names() {
		v := w[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %q must be finite", k)
		}
		if v < 0 {
			return fmt.Errorf("weight %q must be >= 0, got %g", k, v)
		}
	}
	return nil
}

// RankedWeight is one entry of a weight table sorted for display.
type RankedWeight struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// Ranked sorts weights descending, ties broken by name.
func (w FactorWeights) Ranked() []RankedWeight {
	out := make([]RankedWeight, 0, len(w))
	for _, k := range w.Names() {
		out = append(out, RankedWeight{Factor: k, Weight: w[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// FactorScoreSet holds one bounded score per factor for a (player, game).
type FactorScoreSet map[string]float64
