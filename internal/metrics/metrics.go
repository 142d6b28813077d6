package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_backtests_total",
			Help: "Total number of player backtests run",
		},
		[]string{"mode"},
	)

	GamesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_backtest_games_skipped_total",
			Help: "Games skipped because actual points could not be computed",
		},
	)

	FactorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_factor_failures_total",
			Help: "Factor evaluations that failed and contributed zero",
		},
		[]string{"factor"},
	)

	ScoreCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_score_cache_lookups_total",
			Help: "Factor score cache lookups by result",
		},
		[]string{"result"},
	)

	OptimizerEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_optimizer_evaluations_total",
			Help: "Objective evaluations performed by the weight optimizer",
		},
		[]string{"outcome"},
	)

	BacktestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_backtest_duration_seconds",
			Help:    "Wall time of a player backtest or optimization",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"mode"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_http_requests_total",
			Help: "HTTP requests served by the API",
		},
		[]string{"method", "path", "status"},
	)
)
