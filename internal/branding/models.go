package branding

import (
	"time"

	"github.com/google/uuid"
)

// Config is a tenant's white-label branding configuration. One row per
// tenant, upserted from the admin branding form.
type Config struct {
	TenantID       uuid.UUID `json:"tenant_id" db:"tenant_id"`
	PrimaryColor   string    `json:"primary_color" db:"primary_color"`
	SecondaryColor string    `json:"secondary_color" db:"secondary_color"`
	LogoURL        string    `json:"logo_url" db:"logo_url"`
	LogoKey        string    `json:"-" db:"logo_key"`
	FaviconURL     string    `json:"favicon_url" db:"favicon_url"`
	FaviconKey     string    `json:"-" db:"favicon_key"`
	CustomDomain   string    `json:"custom_domain" db:"custom_domain"`
	EmailFromName  string    `json:"email_from_name" db:"email_from_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateRequest carries branding form edits
type UpdateRequest struct {
	PrimaryColor   *string `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
	CustomDomain   *string `json:"custom_domain"`
	EmailFromName  *string `json:"email_from_name"`
}
