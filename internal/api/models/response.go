package models

import (
	"fantasy-backtest/internal/analysis"
	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/tuner"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string               `json:"id,omitempty"`
	Status  string               `json:"status"`
	Summary BacktestSummary      `json:"summary"`
	Ledger  []backtest.LedgerRow `json:"ledger,omitempty"`
}

// BacktestSummary contains aggregated backtest results
type BacktestSummary struct {
	Player        string              `json:"player"`
	GamesAnalyzed int                 `json:"games_analyzed"`
	GamesSkipped  int                 `json:"games_skipped"`
	Accuracy      float64             `json:"accuracy"`
	MAE           float64             `json:"mae"`
	RMSE          float64             `json:"rmse"`
	MeanPoints    float64             `json:"mean_points"`
	Weights       model.FactorWeights `json:"weights"`
}

func NewBacktestSummary(r *backtest.Result) BacktestSummary {
	return BacktestSummary{
		Player:        r.Player,
		GamesAnalyzed: r.GamesAnalyzed,
		GamesSkipped:  r.GamesSkipped,
		Accuracy:      r.Accuracy,
		MAE:           r.MAE,
		RMSE:          r.RMSE,
		MeanPoints:    r.ActualMean(),
		Weights:       r.Weights,
	}
}

type OptimizeResponse struct {
	ID           string                    `json:"id,omitempty"`
	Status       string                    `json:"status"`
	Summary      BacktestSummary           `json:"summary"`
	Baseline     *BacktestSummary          `json:"baseline,omitempty"`
	Optimization *model.OptimizationResult `json:"optimization,omitempty"`
	Ranked       []model.RankedWeight      `json:"ranked_weights,omitempty"`
	Saved        bool                      `json:"saved"`
	Message      string                    `json:"message,omitempty"`
	Ledger       []backtest.LedgerRow      `json:"ledger,omitempty"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Player     string             `json:"player"`
	Comparison []tuner.Comparison `json:"comparison"`
}

// RankResponse represents the response from ranking the roster
type RankResponse struct {
	RunID    string                 `json:"run_id"`
	Rankings []Ranking              `json:"rankings"`
	Summary  analysis.RosterSummary `json:"summary"`
}

type Ranking struct {
	Rank int `json:"rank"`
	analysis.PlayerSummary
}

type WeightsResponse struct {
	Player   string               `json:"player,omitempty"`
	Override bool                 `json:"override"`
	Weights  model.FactorWeights  `json:"weights"`
	Ranked   []model.RankedWeight `json:"ranked"`
}

type WeightsListResponse struct {
	Global  model.FactorWeights            `json:"global"`
	Players map[string]model.FactorWeights `json:"players"`
}

// FactorInfo describes one factor scorer
type FactorInfo struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	DefaultWeight float64 `json:"default_weight"`
}

type PlayerInfo struct {
	Name        string `json:"name"`
	Games       int    `json:"games"`
	HasOverride bool   `json:"has_override"`
	MLBTeam     string `json:"mlb_team,omitempty"`
	FantasyTeam string `json:"fantasy_team,omitempty"`
}

// ReloadResponse reports the size of the reloaded history.
type ReloadResponse struct {
	Games  int `json:"games"`
	Roster int `json:"roster"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
