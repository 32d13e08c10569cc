package tenants

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	ListTenants(ctx context.Context, filters *TenantFilters) ([]Tenant, int, error)
	UpdateTenant(ctx context.Context, tenant *Tenant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status TenantStatus) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateTenant(ctx context.Context, tenant *Tenant) error {
	query := `
		INSERT INTO tenants (
			id, name, slug, status, plan, owner_name, owner_email,
			max_users, max_storage_bytes, metadata
		) VALUES (
			:id, :name, :slug, :status, :plan, :owner_name, :owner_email,
			:max_users, :max_storage_bytes, :metadata
		)`
	_, err := r.db.NamedExecContext(ctx, query, tenant)
	return err
}

func (r *postgresRepository) GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var tenant Tenant
	err := r.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &tenant, err
}

func (r *postgresRepository) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var tenant Tenant
	err := r.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &tenant, err
}

func (r *postgresRepository) ListTenants(ctx context.Context, filters *TenantFilters) ([]Tenant, int, error) {
	query := "SELECT * FROM tenants WHERE 1=1"
	countQuery := "SELECT COUNT(*) FROM tenants WHERE 1=1"
	var args []interface{}
	argCount := 1

	if filters.Status != nil {
		clause := fmt.Sprintf(" AND status = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Plan != nil {
		clause := fmt.Sprintf(" AND plan = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.Plan)
		argCount++
	}
	if filters.Query != "" {
		clause := fmt.Sprintf(" AND (name ILIKE $%d OR slug ILIKE $%d)", argCount, argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Query+"%")
		argCount++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
		argCount++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filters.Offset)
	}

	var tenants []Tenant
	err := r.db.SelectContext(ctx, &tenants, query, args...)
	return tenants, total, err
}

func (r *postgresRepository) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	query := `
		UPDATE tenants SET
			name = :name,
			plan = :plan,
			owner_name = :owner_name,
			owner_email = :owner_email,
			max_users = :max_users,
			max_storage_bytes = :max_storage_bytes,
			metadata = :metadata,
			updated_at = NOW()
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, tenant)
	return err
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status TenantStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}
