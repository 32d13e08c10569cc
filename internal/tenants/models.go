package tenants

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	StatusActive    TenantStatus = "active"
	StatusTrial     TenantStatus = "trial"
	StatusSuspended TenantStatus = "suspended"
	StatusCancelled TenantStatus = "cancelled"
	StatusArchived  TenantStatus = "archived"
)

// IsValid reports whether s is a known lifecycle status
func (s TenantStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusTrial, StatusSuspended, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// JSONB wraps a free-form map for Postgres jsonb columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected jsonb source type %T", src)
	}
	return json.Unmarshal(b, j)
}

// Tenant is one customer organization on the platform. Tenants are only
// ever soft-transitioned between lifecycle states, never deleted.
type Tenant struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	Slug       string       `json:"slug" db:"slug"`
	Status     TenantStatus `json:"status" db:"status"`
	Plan       string       `json:"plan" db:"plan"`
	OwnerName  string       `json:"owner_name" db:"owner_name"`
	OwnerEmail string       `json:"owner_email" db:"owner_email"`
	MaxUsers   int          `json:"max_users" db:"max_users"`
	MaxStorage int64        `json:"max_storage_bytes" db:"max_storage_bytes"`
	Metadata   JSONB        `json:"metadata" db:"metadata"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// TenantFilters narrows List queries
type TenantFilters struct {
	Status *TenantStatus
	Plan   *string
	Query  string
	Limit  int
	Offset int
}

// CreateRequest carries the fields an admin supplies when registering a tenant
type CreateRequest struct {
	Name       string `json:"name" binding:"required"`
	Slug       string `json:"slug" binding:"required"`
	Plan       string `json:"plan"`
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email"`
	MaxUsers   int    `json:"max_users"`
	MaxStorage int64  `json:"max_storage_bytes"`
	Metadata   JSONB  `json:"metadata"`
}

// UpdateRequest carries partial edits from the admin edit form
type UpdateRequest struct {
	Name       *string `json:"name"`
	Plan       *string `json:"plan"`
	OwnerName  *string `json:"owner_name"`
	OwnerEmail *string `json:"owner_email"`
	MaxUsers   *int    `json:"max_users"`
	MaxStorage *int64  `json:"max_storage_bytes"`
	Metadata   JSONB   `json:"metadata"`
}
