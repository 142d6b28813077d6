package models

import "fantasy-backtest/internal/optimizer"

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	Player string `json:"player" binding:"required"`
	// Weights replaces the player's stored weights for this run only.
	Weights       map[string]float64 `json:"weights,omitempty"`
	IncludeLedger bool               `json:"include_ledger,omitempty"`
}

// OptimizeRequest searches weights for one player.
type OptimizeRequest struct {
	Player string                      `json:"player" binding:"required"`
	Save   bool                        `json:"save,omitempty"`
	Bounds map[string]optimizer.Bounds `json:"bounds,omitempty"`

	// Zero values keep the server's configured settings.
	Seed    *int64 `json:"seed,omitempty"`
	PopSize int    `json:"popsize,omitempty"`
	MaxIter int    `json:"maxiter,omitempty"`
	Workers int    `json:"workers,omitempty"`

	IncludeLedger bool `json:"include_ledger,omitempty"`
}

// CompareBacktestRequest compares weight variations over one player's history
type CompareBacktestRequest struct {
	Player     string              `json:"player" binding:"required"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1,dive"`
}

type BacktestVariation struct {
	Name    string             `json:"name" binding:"required"`
	Weights map[string]float64 `json:"weights" binding:"required"`
}

// RankRequest represents query parameters for ranking the roster
type RankRequest struct {
	Limit int `form:"limit"`
}

type WeightsRequest struct {
	Weights map[string]float64 `json:"weights" binding:"required"`
}

type RunsRequest struct {
	Player string `form:"player"`
	Limit  int    `form:"limit"`
}
