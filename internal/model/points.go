package model

import (
	"errors"
	"fmt"
	"math"
)

// PointsScheme defines the fantasy-point value of each counting stat.
// It is fixed for the duration of a backtest run.
type PointsScheme struct {
	Single     float64 `yaml:"single" json:"single"`
	Double     float64 `yaml:"double" json:"double"`
	Triple     float64 `yaml:"triple" json:"triple"`
	HomeRun    float64 `yaml:"home_run" json:"home_run"`
	RBI        float64 `yaml:"rbi" json:"rbi"`
	Run        float64 `yaml:"run" json:"run"`
	StolenBase float64 `yaml:"stolen_base" json:"stolen_base"`
	Walk       float64 `yaml:"walk" json:"walk"`
	Strikeout  float64 `yaml:"strikeout" json:"strikeout"`
}

// DefaultPointsScheme is the league's hitter scoring.
func DefaultPointsScheme() PointsScheme {
	return PointsScheme{
		Single:     3,
		Double:     5,
		Triple:     8,
		HomeRun:    10,
		RBI:        2,
		Run:        2,
		StolenBase: 5,
		Walk:       2,
		Strikeout:  -1,
	}
}

func (p PointsScheme) IsZero() bool {
	return p == PointsScheme{}
}

func (p PointsScheme) Validate() error {
	vals := []float64{p.Single, p.Double, p.Triple, p.HomeRun, p.RBI, p.Run, p.StolenBase, p.Walk, p.Strikeout}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("points scheme values must be finite")
		}
	}
	if p.IsZero() {
		return errors.New("points scheme must have at least one non-zero value")
	}
	return nil
}

// Points computes fantasy points for one game. Negative counts or more
// extra-base hits than hits are rejected.
func (p PointsScheme) Points(s CountingStats) (float64, error) {
	counts := []int{s.AtBats, s.Hits, s.Doubles, s.Triples, s.HomeRuns, s.RBI, s.Runs, s.StolenBases, s.Walks, s.Strikeouts}
	for _, c := range counts {
		if c < 0 {
			return 0, fmt.Errorf("negative counting stat %d", c)
		}
	}
	singles := s.Singles()
	if singles < 0 {
		return 0, fmt.Errorf("hits %d below extra-base hits %d", s.Hits, s.Doubles+s.Triples+s.HomeRuns)
	}

	pts := float64(singles)*p.Single +
		float64(s.Doubles)*p.Double +
		float64(s.Triples)*p.Triple +
		float64(s.HomeRuns)*p.HomeRun +
		float64(s.RBI)*p.RBI +
		float64(s.Runs)*p.Run +
		float64(s.StolenBases)*p.StolenBase +
		float64(s.Walks)*p.Walk +
		float64(s.Strikeouts)*p.Strikeout
	return pts, nil
}
