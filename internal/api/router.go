package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"fantasy-backtest/internal/api/handlers"
	"fantasy-backtest/internal/api/middleware"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/tuner"
)

// Deps is everything the HTTP handlers share. A nil Reload leaves
// POST /history/reload unregistered.
type Deps struct {
	Tuner       *tuner.Tuner
	History     *handlers.History
	Reload      handlers.LoadFunc
	Recorder    store.Recorder
	Log         *logrus.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine with middleware, health, metrics and the
// /api/v1 routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(d.CORSOrigins...))
	if d.Log != nil {
		router.Use(middleware.Logger(d.Log))
	}

	router.GET("/health", func(c *gin.Context) {
		games, _ := d.History.Snapshot()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "games": len(games)})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	SetupRoutes(router.Group("/api/v1"), d)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, d Deps) {
	backtestHandler := handlers.NewBacktestHandler(d.Tuner, d.History)
	rankHandler := handlers.NewRankHandler(d.Tuner, d.History)
	weightsHandler := handlers.NewWeightsHandler(d.Tuner.Weights())
	factorHandler := handlers.NewFactorHandler(d.Tuner.Engine().Scorer().Provider())
	playersHandler := handlers.NewPlayersHandler(d.History, d.Tuner.Weights(), d.Recorder)

	group.POST("/backtest", backtestHandler.RunBacktest)
	group.GET("/backtest/:id/ledger", backtestHandler.GetLedger)
	group.POST("/backtest/compare", backtestHandler.CompareBacktests)
	group.POST("/optimize", backtestHandler.Optimize)

	group.GET("/rank", rankHandler.RankPlayers)

	group.GET("/weights", weightsHandler.ListWeights)
	group.PUT("/weights", weightsHandler.PutGlobalWeights)
	group.GET("/weights/:player", weightsHandler.GetWeights)
	group.PUT("/weights/:player", weightsHandler.PutPlayerWeights)
	group.DELETE("/weights/:player", weightsHandler.ResetPlayerWeights)

	group.GET("/factors", factorHandler.ListFactors)
	group.GET("/players", playersHandler.ListPlayers)
	group.GET("/runs", playersHandler.ListRuns)

	if d.Reload != nil {
		historyHandler := handlers.NewHistoryHandler(d.History, d.Reload)
		group.POST("/history/reload", historyHandler.ReloadHistory)
	}
}
