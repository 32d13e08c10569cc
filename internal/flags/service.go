package flags

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service provides feature flag business logic
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates the flag service and migrates its tables
func NewService(db *gorm.DB, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&FeatureFlag{}, &TenantFlagOverride{}); err != nil {
		return nil, fmt.Errorf("failed to migrate flag tables: %w", err)
	}
	return &Service{db: db, logger: logger}, nil
}

// ListFlags returns all platform flag definitions
func (s *Service) ListFlags(ctx context.Context) ([]FeatureFlag, error) {
	var flags []FeatureFlag
	if err := s.db.WithContext(ctx).Order("key").Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}

// UpsertFlag creates or updates a flag definition
func (s *Service) UpsertFlag(ctx context.Context, flag *FeatureFlag) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "default_on", "updated_at"}),
	}).Create(flag).Error
	if err != nil {
		return fmt.Errorf("failed to upsert flag: %w", err)
	}
	return nil
}

// EffectiveFlags resolves what a tenant actually gets for every flag
func (s *Service) EffectiveFlags(ctx context.Context, tenantID uuid.UUID) ([]EffectiveFlag, error) {
	var flags []FeatureFlag
	if err := s.db.WithContext(ctx).Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}

	var overrides []TenantFlagOverride
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	return ResolveEffective(flags, overrides), nil
}

// Toggle pins a flag for one tenant
func (s *Service) Toggle(ctx context.Context, tenantID uuid.UUID, flagKey string, enabled bool, payload datatypes.JSONMap, updatedBy string) error {
	var flag FeatureFlag
	if err := s.db.WithContext(ctx).First(&flag, "key = ?", flagKey).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("unknown flag %q", flagKey)
		}
		return fmt.Errorf("failed to look up flag: %w", err)
	}

	override := TenantFlagOverride{
		TenantID:  tenantID,
		FlagKey:   flagKey,
		Enabled:   enabled,
		Payload:   payload,
		UpdatedBy: updatedBy,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "flag_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "payload", "updated_by", "updated_at"}),
	}).Create(&override).Error
	if err != nil {
		return fmt.Errorf("failed to toggle flag: %w", err)
	}

	s.logger.Info("flag toggled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("flag", flagKey),
		zap.Bool("enabled", enabled))
	return nil
}

// ClearOverride removes a tenant's pin so the default applies again
func (s *Service) ClearOverride(ctx context.Context, tenantID uuid.UUID, flagKey string) error {
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND flag_key = ?", tenantID, flagKey).
		Delete(&TenantFlagOverride{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear override: %w", err)
	}
	return nil
}

// ResolveEffective merges flag defaults with tenant overrides. Pure
// function: an override always beats the default.
func ResolveEffective(flags []FeatureFlag, overrides []TenantFlagOverride) []EffectiveFlag {
	byKey := make(map[string]TenantFlagOverride, len(overrides))
	for _, override := range overrides {
		byKey[override.FlagKey] = override
	}

	effective := make([]EffectiveFlag, 0, len(flags))
	for _, flag := range flags {
		resolved := EffectiveFlag{
			Key:         flag.Key,
			Description: flag.Description,
			Enabled:     flag.DefaultOn,
		}
		if override, ok := byKey[flag.Key]; ok {
			resolved.Enabled = override.Enabled
			resolved.Overridden = true
			resolved.Payload = override.Payload
		}
		effective = append(effective, resolved)
	}
	sort.Slice(effective, func(i, j int) bool { return effective[i].Key < effective[j].Key })
	return effective
}
