package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
)

// LoadFunc reads the current history from disk.
type LoadFunc func() ([]model.GameContext, []data.RosterEntry, error)

// HistoryHandler swaps in freshly merged history without a restart.
type HistoryHandler struct {
	history *History
	load    LoadFunc
}

func NewHistoryHandler(h *History, load LoadFunc) *HistoryHandler {
	return &HistoryHandler{history: h, load: load}
}

// ReloadHistory handles POST /api/v1/history/reload
func (h *HistoryHandler) ReloadHistory(c *gin.Context) {
	games, roster, err := h.load()
	if err != nil {
		logger.WithComponent("api").WithError(err).Error("history reload failed")
		respondError(c, http.StatusInternalServerError, "RELOAD_FAILED", err.Error())
		return
	}
	h.history.Replace(games, roster)
	c.JSON(http.StatusOK, models.ReloadResponse{Games: len(games), Roster: len(roster)})
}
