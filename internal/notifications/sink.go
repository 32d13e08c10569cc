package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"clearstack/admin-console/admin-console-backend/internal/realtime"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// ConsoleNotification is one outcome message shown to operators
type ConsoleNotification struct {
	ID        uuid.UUID         `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID  uuid.UUID         `json:"tenant_id" gorm:"type:uuid;index"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// Service persists console notifications and pushes them on the
// realtime hub. All calls are fire-and-forget: a failed notification is
// logged and dropped, never surfaced to the operation that emitted it.
type Service struct {
	db     *gorm.DB
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewService creates the notification sink and migrates its table
func NewService(db *gorm.DB, hub *realtime.Hub, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&ConsoleNotification{}); err != nil {
		return nil, err
	}
	return &Service{db: db, hub: hub, logger: logger}, nil
}

// NotifySuccess records a success outcome
func (s *Service) NotifySuccess(ctx context.Context, tenantID uuid.UUID, message string) {
	s.record(ctx, tenantID, SeveritySuccess, message)
}

// NotifyError records a failure outcome
func (s *Service) NotifyError(ctx context.Context, tenantID uuid.UUID, message string) {
	s.record(ctx, tenantID, SeverityError, message)
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, severity Severity, message string) {
	notification := &ConsoleNotification{
		ID:       uuid.New(),
		TenantID: tenantID,
		Severity: severity,
		Message:  message,
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Warn("failed to persist notification",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return
	}

	s.hub.Broadcast(realtime.Event{
		Table: "console_notifications",
		Op:    "INSERT",
		ID:    notification.ID.String(),
	})
}

// ListRecent returns the newest notifications for a tenant
func (s *Service) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]ConsoleNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []ConsoleNotification
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}
