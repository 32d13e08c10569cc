package billing

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	UpdatePlan(ctx context.Context, tenantID uuid.UUID, plan string) error
	ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub,
		"SELECT * FROM subscriptions WHERE tenant_id = $1", tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &sub, err
}

func (r *postgresRepository) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, "SELECT * FROM subscriptions")
	return subs, err
}

func (r *postgresRepository) UpdatePlan(ctx context.Context, tenantID uuid.UUID, plan string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET plan = $1, updated_at = NOW() WHERE tenant_id = $2`,
		plan, tenantID)
	if err != nil {
		return err
	}
	// The tenant row carries the plan tag too, for list filtering
	_, err = r.db.ExecContext(ctx,
		"UPDATE tenants SET plan = $1, updated_at = NOW() WHERE id = $2", plan, tenantID)
	return err
}

func (r *postgresRepository) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	var invoices []Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices WHERE tenant_id = $1 ORDER BY issued_at DESC`, tenantID)
	return invoices, err
}
