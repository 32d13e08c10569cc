package flags

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FeatureFlag is a platform-wide flag definition with its default
type FeatureFlag struct {
	Key         string    `json:"key" gorm:"primaryKey"`
	Description string    `json:"description"`
	DefaultOn   bool      `json:"default_on"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TenantFlagOverride pins a flag on or off for one tenant, optionally
// with a flag-specific payload (rollout percentage, variant config)
type TenantFlagOverride struct {
	TenantID  uuid.UUID         `json:"tenant_id" gorm:"primaryKey;type:uuid"`
	FlagKey   string            `json:"flag_key" gorm:"primaryKey"`
	Enabled   bool              `json:"enabled"`
	Payload   datatypes.JSONMap `json:"payload"`
	UpdatedBy string            `json:"updated_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// EffectiveFlag is what a tenant actually gets: the default unless an
// override exists
type EffectiveFlag struct {
	Key         string            `json:"key"`
	Description string            `json:"description"`
	Enabled     bool              `json:"enabled"`
	Overridden  bool              `json:"overridden"`
	Payload     datatypes.JSONMap `json:"payload,omitempty"`
}
