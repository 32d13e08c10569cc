package onboarding

import (
	"errors"
	"net/http"
	"strconv"

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
	r.GET("/tenants/:id/onboarding", h.GetOnboarding)
	r.POST("/tenants/:id/onboarding/steps/:number/advance", h.AdvanceStep)
	r.DELETE("/tenants/:id/onboarding/session", h.CloseSession)
}

type advanceRequest struct {
	Status  StepStatus             `json:"status" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

func (h *Handler) GetOnboarding(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var workflowID *uuid.UUID
	if raw := c.Query("workflow_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
			return
		}
		workflowID = &id
	}
	autoCreate := c.Query("auto_create") == "true"

	view, err := h.service.GetOnboarding(c.Request.Context(), tenantID, workflowID, autoCreate)
	if err != nil {
		h.renderError(c, tenantID, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) AdvanceStep(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	stepNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || stepNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step number"})
		return
	}

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.AdvanceStep(c.Request.Context(), tenantID, stepNumber, req.Status, req.Payload)
	if err != nil {
		h.renderError(c, tenantID, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) CloseSession(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	h.service.CloseSession(tenantID)
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// renderError maps the error taxonomy onto HTTP responses. Rejection
// messages from the transition endpoint pass through verbatim.
func (h *Handler) renderError(c *gin.Context, tenantID uuid.UUID, err error) {
	if msg, rejected := IsTransitionRejected(err); rejected {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg, "kind": "transition_rejected"})
		return
	}

	switch {
	case errors.Is(err, ErrNoWorkflow):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "no_workflow"})
	case errors.Is(err, ErrStepNotFound), errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case IsProtocolError(err):
		h.logger.Error("protocol error from transition endpoint",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unexpected backend response", "kind": "protocol_error"})
	default:
		h.logger.Error("onboarding operation failed",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed", "kind": "transport_error"})
	}
}
