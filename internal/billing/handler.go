package billing

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
	r.GET("/tenants/:id/subscription", h.GetSubscription)
	r.PUT("/tenants/:id/subscription/plan", h.ChangePlan)
	r.GET("/tenants/:id/invoices", h.ListInvoices)
	r.GET("/billing/plan-breakdown", h.PlanBreakdown)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	sub, err := h.service.GetSubscription(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		h.logger.Error("failed to get subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

type changePlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

func (h *Handler) ChangePlan(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ChangePlan(c.Request.Context(), tenantID, req.Plan); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		h.logger.Error("failed to change plan", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "plan": req.Plan})
}

func (h *Handler) ListInvoices(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	invoices, err := h.service.ListInvoices(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) PlanBreakdown(c *gin.Context) {
	shares, err := h.service.PlanBreakdown(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute plan breakdown", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute breakdown"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": shares})
}
