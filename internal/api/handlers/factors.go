package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api/models"
	"fantasy-backtest/internal/factor"
)

// FactorHandler lists the factor scorers
type FactorHandler struct {
	provider *factor.Provider
}

func NewFactorHandler(p *factor.Provider) *FactorHandler {
	return &FactorHandler{provider: p}
}

// ListFactors handles GET /api/v1/factors
func (h *FactorHandler) ListFactors(c *gin.Context) {
	infos := h.provider.Describe()
	out := make([]models.FactorInfo, len(infos))
	for i, f := range infos {
		out[i] = models.FactorInfo{Name: f.Name, Description: f.Description, DefaultWeight: f.DefaultWeight}
	}
	c.JSON(http.StatusOK, gin.H{"factors": out})
}
