package model

import "time"

// OptimizationResult is the outcome of a weight search for one player.
type OptimizationResult struct {
	Player string `json:"player"`

	// Weights are normalized to sum to 1 when the raw sum was positive.
	Weights    FactorWeights `json:"weights"`
	RawWeights FactorWeights `json:"raw_weights"`

	Accuracy      float64 `json:"accuracy"`
	GamesAnalyzed int     `json:"games_analyzed"`

	Iterations  int  `json:"iterations"`
	Evaluations int  `json:"evaluations"`
	Failures    int  `json:"failed_evaluations"`
	Converged   bool `json:"converged"`
	Polished    bool `json:"polished"`

	Duration time.Duration `json:"duration_ns"`
}
