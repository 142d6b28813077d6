package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/store"
	"fantasy-backtest/internal/weights"
)

// PlayersHandler lists players and their run history
type PlayersHandler struct {
	history  *History
	weights  *weights.Store
	recorder store.Recorder
}

func NewPlayersHandler(history *History, ws *weights.Store, rec store.Recorder) *PlayersHandler {
	if rec == nil {
		rec = store.NewNoopRecorder()
	}
	return &PlayersHandler{history: history, weights: ws, recorder: rec}
}

// ListPlayers handles GET /api/v1/players
func (h *PlayersHandler) ListPlayers(c *gin.Context) {
	games, _ := h.history.Snapshot()
	counts := make(map[string]int)
	for name, gs := range data.GroupByPlayer(games) {
		counts[normalize(name)] = len(gs)
	}

	players := h.history.Players()
	out := make([]models.PlayerInfo, 0, len(players))
	for _, p := range players {
		info := models.PlayerInfo{
			Name:        p,
			Games:       counts[normalize(p)],
			HasOverride: h.weights.HasOverride(p),
		}
		if r, ok := h.history.rosterEntry(p); ok {
			info.MLBTeam = r.MLBTeam
			info.FantasyTeam = r.FantasyTeam
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"players": out})
}

// ListRuns handles GET /api/v1/runs
func (h *PlayersHandler) ListRuns(c *gin.Context) {
	var req models.RunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	runs, err := h.recorder.RecentRuns(req.Player, req.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
