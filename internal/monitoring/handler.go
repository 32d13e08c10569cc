package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	aggregator *Aggregator
	logger     *zap.Logger
}

func NewHandler(aggregator *Aggregator, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
	r.POST("/dashboard/refresh", h.RefreshDashboard)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	snapshot, err := h.aggregator.GetSnapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load dashboard snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) RefreshDashboard(c *gin.Context) {
	snapshot, err := h.aggregator.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to refresh dashboard snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh dashboard"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
