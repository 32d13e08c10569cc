package flags

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/flags", h.ListFlags)
	r.PUT("/flags/:key", h.UpsertFlag)
	r.GET("/tenants/:id/flags", h.EffectiveFlags)
	r.PUT("/tenants/:id/flags/:key", h.Toggle)
	r.DELETE("/tenants/:id/flags/:key", h.ClearOverride)
}

func (h *Handler) ListFlags(c *gin.Context) {
	flags, err := h.service.ListFlags(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list flags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list flags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

type upsertFlagRequest struct {
	Description string `json:"description"`
	DefaultOn   bool   `json:"default_on"`
}

func (h *Handler) UpsertFlag(c *gin.Context) {
	var req upsertFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flag := &FeatureFlag{
		Key:         c.Param("key"),
		Description: req.Description,
		DefaultOn:   req.DefaultOn,
	}
	if err := h.service.UpsertFlag(c.Request.Context(), flag); err != nil {
		h.logger.Error("failed to upsert flag", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upsert flag"})
		return
	}

	c.JSON(http.StatusOK, flag)
}

func (h *Handler) EffectiveFlags(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	effective, err := h.service.EffectiveFlags(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to resolve flags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve flags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": effective})
}

type toggleRequest struct {
	Enabled   bool              `json:"enabled"`
	Payload   datatypes.JSONMap `json:"payload"`
	UpdatedBy string            `json:"updated_by"`
}

func (h *Handler) Toggle(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Toggle(c.Request.Context(), tenantID, c.Param("key"), req.Enabled, req.Payload, req.UpdatedBy); err != nil {
		h.logger.Error("failed to toggle flag", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) ClearOverride(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	if err := h.service.ClearOverride(c.Request.Context(), tenantID, c.Param("key")); err != nil {
		h.logger.Error("failed to clear override", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear override"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
