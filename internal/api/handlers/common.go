package handlers

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/backtest"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/model"
)

// History is the dataset the API serves. Replace swaps it atomically.
type History struct {
	mu     sync.RWMutex
	games  []model.GameContext
	roster []data.RosterEntry
}

func NewHistory(games []model.GameContext, roster []data.RosterEntry) *History {
	return &History{games: games, roster: roster}
}

func (h *History) Replace(games []model.GameContext, roster []data.RosterEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.games, h.roster = games, roster
}

// Snapshot returns the current games and roster player names.
func (h *History) Snapshot() ([]model.GameContext, []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.games, data.RosterNames(h.roster)
}

// Players lists roster players, or everyone in the games without a roster.
func (h *History) Players() []string {
	games, roster := h.Snapshot()
	if len(roster) > 0 {
		return roster
	}
	return backtest.Players(games)
}

func (h *History) rosterEntry(player string) (data.RosterEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.roster {
		if normalize(r.PlayerName) == normalize(player) {
			return r, true
		}
	}
	return data.RosterEntry{}, false
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
