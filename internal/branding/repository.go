package branding

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetConfig(ctx context.Context, tenantID uuid.UUID) (*Config, error)
	UpsertConfig(ctx context.Context, config *Config) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetConfig(ctx context.Context, tenantID uuid.UUID) (*Config, error) {
	var config Config
	err := r.db.GetContext(ctx, &config,
		"SELECT * FROM branding_configs WHERE tenant_id = $1", tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &config, err
}

func (r *postgresRepository) UpsertConfig(ctx context.Context, config *Config) error {
	query := `
		INSERT INTO branding_configs (
			tenant_id, primary_color, secondary_color, logo_url, logo_key,
			favicon_url, favicon_key, custom_domain, email_from_name
		) VALUES (
			:tenant_id, :primary_color, :secondary_color, :logo_url, :logo_key,
			:favicon_url, :favicon_key, :custom_domain, :email_from_name
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			primary_color = EXCLUDED.primary_color,
			secondary_color = EXCLUDED.secondary_color,
			logo_url = EXCLUDED.logo_url,
			logo_key = EXCLUDED.logo_key,
			favicon_url = EXCLUDED.favicon_url,
			favicon_key = EXCLUDED.favicon_key,
			custom_domain = EXCLUDED.custom_domain,
			email_from_name = EXCLUDED.email_from_name,
			updated_at = NOW()`
	_, err := r.db.NamedExecContext(ctx, query, config)
	return err
}
