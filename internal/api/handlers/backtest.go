package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/optimizer"
	"fantasy-backtest/internal/tuner"
)

// maxStoredResults bounds how many ledgers GetLedger can serve.
const maxStoredResults = 100

// BacktestHandler handles backtest and optimization requests
type BacktestHandler struct {
	tuner   *tuner.Tuner
	history *History

	mu      sync.RWMutex
	results map[string]*backtest.Result
	order   []string
}

func NewBacktestHandler(t *tuner.Tuner, history *History) *BacktestHandler {
	return &BacktestHandler{
		tuner:   t,
		history: history,
		results: make(map[string]*backtest.Result),
	}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	games, _ := h.history.Snapshot()
	var res *backtest.Result
	if req.Weights != nil {
		w := model.FactorWeights(req.Weights)
		if err := w.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_WEIGHTS", err.Error())
			return
		}
		res = h.tuner.Engine().Run(req.Player, games, w.WithDefaults())
	} else {
		pr := h.tuner.RunPlayer(c.Request.Context(), uuid.NewString(), req.Player, games, tuner.Options{})
		res = pr.Result
	}

	id := h.store(res)
	resp := models.BacktestResponse{
		ID:      id,
		Status:  status(res),
		Summary: models.NewBacktestSummary(res),
	}
	if req.IncludeLedger {
		resp.Ledger = res.Ledger
	}
	c.JSON(http.StatusOK, resp)
}

// Optimize handles POST /api/v1/optimize
func (h *BacktestHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	settings := h.tuner.Optimizer().Settings()
	if req.Seed != nil {
		settings.Seed = *req.Seed
	}
	if req.PopSize > 0 {
		settings.PopSize = req.PopSize
	}
	if req.MaxIter > 0 {
		settings.MaxIter = req.MaxIter
	}
	if req.Workers > 0 {
		settings.Workers = req.Workers
	}
	if err := settings.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_SETTINGS", err.Error())
		return
	}
	for name, b := range req.Bounds {
		if err := b.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_BOUNDS", name+": "+err.Error())
			return
		}
	}

	tn := h.tuner.WithOptimizer(h.tuner.Optimizer().WithSettings(settings))
	games, _ := h.history.Snapshot()
	runID := uuid.NewString()
	pr := tn.RunPlayer(c.Request.Context(), runID, req.Player, games, tuner.Options{Optimize: true, Bounds: req.Bounds})
	if pr.Err != nil {
		code := http.StatusInternalServerError
		if errors.Is(pr.Err, optimizer.ErrNoFeasibleWeights) {
			code = http.StatusUnprocessableEntity
		}
		logger.WithRunID(runID).WithField("player", req.Player).WithError(pr.Err).Warn("optimize request failed")
		respondError(c, code, "OPTIMIZATION_FAILED", pr.Err.Error())
		return
	}

	resp := models.OptimizeResponse{
		ID:      h.store(pr.Result),
		Status:  status(pr.Result),
		Summary: models.NewBacktestSummary(pr.Result),
	}
	if req.IncludeLedger {
		resp.Ledger = pr.Result.Ledger
	}
	if pr.Optimization == nil {
		resp.Status = "skipped"
		resp.Message = "not enough games to optimize; showing current weights"
		c.JSON(http.StatusOK, resp)
		return
	}

	base := models.NewBacktestSummary(pr.Baseline)
	resp.Baseline = &base
	resp.Optimization = pr.Optimization
	resp.Ranked = pr.Optimization.Weights.Ranked()
	if req.Save {
		if err := h.tuner.Weights().Save(req.Player, pr.Optimization.Weights); err != nil {
			resp.Message = "weights not saved: " + err.Error()
		} else {
			resp.Saved = true
			logger.WithPlayer(req.Player).WithField("run_id", runID).Info("saved optimized weights via API")
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetLedger handles GET /api/v1/backtest/:id/ledger
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	h.mu.RLock()
	res, ok := h.results[c.Param("id")]
	h.mu.RUnlock()
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Backtest result not found or expired")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     c.Param("id"),
		"player": res.Player,
		"ledger": res.Ledger,
	})
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	variations := make([]tuner.Variation, 0, len(req.Variations))
	for _, v := range req.Variations {
		w := model.FactorWeights(v.Weights)
		if err := w.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_WEIGHTS", v.Name+": "+err.Error())
			return
		}
		variations = append(variations, tuner.Variation{Name: v.Name, Weights: w})
	}

	games, _ := h.history.Snapshot()
	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Player:     req.Player,
		Comparison: h.tuner.Compare(req.Player, games, variations),
	})
}

// store keeps res for GetLedger, evicting the oldest beyond maxStoredResults.
func (h *BacktestHandler) store(res *backtest.Result) string {
	id := uuid.NewString()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results[id] = res
	h.order = append(h.order, id)
	for len(h.order) > maxStoredResults {
		delete(h.results, h.order[0])
		h.order = h.order[1:]
	}
	return id
}

func status(res *backtest.Result) string {
	if res.GamesAnalyzed == 0 {
		return "no_games"
	}
	return "completed"
}
