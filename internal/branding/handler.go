package branding

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/:id/branding", h.GetConfig)
	r.PUT("/tenants/:id/branding", h.UpdateConfig)
	r.POST("/tenants/:id/branding/assets/:kind", h.UploadAsset)
	r.GET("/tenants/:id/branding/assets/:kind/url", h.AssetURL)
}

func (h *Handler) GetConfig(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	config, err := h.service.GetConfig(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to get branding config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get branding"})
		return
	}

	c.JSON(http.StatusOK, config)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config, err := h.service.UpdateConfig(c.Request.Context(), tenantID, req)
	if err != nil {
		h.logger.Error("failed to update branding config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update branding"})
		return
	}

	c.JSON(http.StatusOK, config)
}

func (h *Handler) UploadAsset(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer src.Close()

	config, err := h.service.UploadLogo(c.Request.Context(), tenantID, c.Param("kind"), file.Filename, src)
	if err != nil {
		h.logger.Error("failed to upload branding asset", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, config)
}

func (h *Handler) AssetURL(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	url, err := h.service.AssetDownloadURL(c.Request.Context(), tenantID, c.Param("kind"))
	switch {
	case errors.Is(err, ErrUnknownAssetKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not uploaded"})
	case err != nil:
		h.logger.Error("failed to sign branding asset url", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign asset url"})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url, "expires_in_seconds": int(assetURLTTL.Seconds())})
	}
}
