package backtest

import (
	"time"

	"fantasy-backtest/internal/model"
)

// LedgerRow is one row of per-game output.
// This is the primary artifact for "what happened" in a backtest.
type LedgerRow struct {
	Index int `json:"index"`

	GameID   string    `json:"game_id"`
	Date     time.Time `json:"game_date"`
	Opponent string    `json:"opponent"`
	Venue    string    `json:"venue"`
	IsHome   bool      `json:"is_home"`

	Factors model.FactorScoreSet `json:"factors"`

	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	// ActualNormalized is the z-scored actual the metrics compare against.
	ActualNormalized float64 `json:"actual_normalized"`

	Recommendation model.Recommendation `json:"recommendation"`
}

// Result is the outcome of replaying one player's history under one weight
// vector. Treat it as read-only.
type Result struct {
	Player        string              `json:"player"`
	Weights       model.FactorWeights `json:"weights"`
	GamesAnalyzed int                 `json:"games_analyzed"`
	GamesSkipped  int                 `json:"games_skipped"`

	Ledger []LedgerRow `json:"ledger,omitempty"`

	Predictions []float64 `json:"predictions,omitempty"`
	Actuals     []float64 `json:"actuals,omitempty"`

	Accuracy float64 `json:"accuracy"`
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
}

// ActualMean is the player's average fantasy points over analyzed games.
func (r *Result) ActualMean() float64 {
	if r == nil || len(r.Actuals) == 0 {
		return 0
	}
	total := 0.0
	for _, a := range r.Actuals {
		total += a
	}
	return total / float64(len(r.Actuals))
}
