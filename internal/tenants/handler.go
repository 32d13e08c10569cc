package tenants

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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
	r.POST("/tenants", h.CreateTenant)
	r.GET("/tenants", h.ListTenants)
	r.GET("/tenants/export", h.ExportTenants)
	r.GET("/tenants/:id", h.GetTenant)
	r.PUT("/tenants/:id", h.UpdateTenant)
	r.POST("/tenants/:id/status", h.ChangeStatus)
}

func (h *Handler) CreateTenant(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.service.CreateTenant(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to create tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create tenant"})
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

func (h *Handler) ListTenants(c *gin.Context) {
	filters := &TenantFilters{
		Query: c.Query("q"),
		Limit: 50,
	}
	if raw := c.Query("status"); raw != "" {
		status := TenantStatus(raw)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filters.Status = &status
	}
	if raw := c.Query("plan"); raw != "" {
		filters.Plan = &raw
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			filters.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	tenants, total, err := h.service.ListTenants(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list tenants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tenants"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenants": tenants, "total": total})
}

func (h *Handler) GetTenant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	tenant, err := h.service.GetTenant(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		h.logger.Error("failed to get tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get tenant"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":              tenant,
		"allowed_transitions": h.service.AllowedTransitions(tenant.Status),
	})
}

func (h *Handler) UpdateTenant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.service.UpdateTenant(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		h.logger.Error("failed to update tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tenant"})
		return
	}

	c.JSON(http.StatusOK, tenant)
}

type changeStatusRequest struct {
	Status TenantStatus `json:"status" binding:"required"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.service.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.Is(err, ErrTenantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
		default:
			h.logger.Error("failed to change tenant status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change status"})
		}
		return
	}

	c.JSON(http.StatusOK, tenant)
}

func (h *Handler) ExportTenants(c *gin.Context) {
	tenants, _, err := h.service.ListTenants(c.Request.Context(), &TenantFilters{})
	if err != nil {
		h.logger.Error("failed to export tenants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export tenants"})
		return
	}

	filename := "tenants-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := ExportExcel(tenants, c.Writer); err != nil {
		h.logger.Error("failed to write excel export", zap.Error(err))
	}
}
