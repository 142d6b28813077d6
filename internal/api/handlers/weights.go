package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/weights"
)

// WeightsHandler exposes the weight store
type WeightsHandler struct {
	store *weights.Store
}

func NewWeightsHandler(store *weights.Store) *WeightsHandler {
	return &WeightsHandler{store: store}
}

// ListWeights handles GET /api/v1/weights
func (h *WeightsHandler) ListWeights(c *gin.Context) {
	c.JSON(http.StatusOK, models.WeightsListResponse{
		Global:  h.store.LoadGlobal(),
		Players: h.store.LoadPlayers(),
	})
}

// GetWeights handles GET /api/v1/weights/:player
func (h *WeightsHandler) GetWeights(c *gin.Context) {
	player := c.Param("player")
	w := h.store.Load(player)
	c.JSON(http.StatusOK, models.WeightsResponse{
		Player:   player,
		Override: h.store.HasOverride(player),
		Weights:  w,
		Ranked:   w.Ranked(),
	})
}

// PutGlobalWeights handles PUT /api/v1/weights
func (h *WeightsHandler) PutGlobalWeights(c *gin.Context) {
	w, ok := bindWeights(c)
	if !ok {
		return
	}
	if err := h.store.SaveGlobal(w); err != nil {
		respondError(c, http.StatusInternalServerError, "SAVE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, models.WeightsResponse{Weights: w, Ranked: w.Ranked()})
}

// PutPlayerWeights handles PUT /api/v1/weights/:player
func (h *WeightsHandler) PutPlayerWeights(c *gin.Context) {
	w, ok := bindWeights(c)
	if !ok {
		return
	}
	player := c.Param("player")
	if err := h.store.Save(player, w); err != nil {
		respondError(c, http.StatusInternalServerError, "SAVE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, models.WeightsResponse{Player: player, Override: true, Weights: w, Ranked: w.Ranked()})
}

// ResetPlayerWeights handles DELETE /api/v1/weights/:player
func (h *WeightsHandler) ResetPlayerWeights(c *gin.Context) {
	player := c.Param("player")
	if err := h.store.Reset(player); err != nil {
		respondError(c, http.StatusInternalServerError, "RESET_FAILED", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func bindWeights(c *gin.Context) (model.FactorWeights, bool) {
	var req models.WeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}
	w := model.FactorWeights(req.Weights)
	if err := w.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_WEIGHTS", err.Error())
		return nil, false
	}
	return w, true
}
