package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/analysis"
	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/tuner"
)

// RankHandler ranks roster players by backtest accuracy
type RankHandler struct {
	tuner   *tuner.Tuner
	history *History
}

func NewRankHandler(t *tuner.Tuner, history *History) *RankHandler {
	return &RankHandler{tuner: t, history: history}
}

// RankPlayers handles GET /api/v1/rank
func (h *RankHandler) RankPlayers(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	games, roster := h.history.Snapshot()
	report, err := h.tuner.Run(c.Request.Context(), games, roster, tuner.Options{})
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "NO_HISTORY", err.Error())
		return
	}

	ranked := analysis.RankByAccuracy(report.Players)
	summary := analysis.Summarize(ranked)

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{Rank: i + 1, PlayerSummary: r}
	}
	c.JSON(http.StatusOK, models.RankResponse{
		RunID:    report.RunID,
		Rankings: rankings,
		Summary:  summary,
	})
}
