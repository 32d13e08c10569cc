package tenants

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clearstack/admin-console/admin-console-backend/pkg/lifecycle"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSlugTaken      = errors.New("slug already in use")
)

// InvalidTransitionError is returned when a lifecycle change is not allowed
type InvalidTransitionError struct {
	From TenantStatus
	To   TenantStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition tenant from %s to %s", e.From, e.To)
}

// Service provides tenant business logic
type Service struct {
	repo      Repository
	lifecycle *lifecycle.StateMachine
	logger    *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lifecycle.NewTenantLifecycle(),
		logger:    logger,
	}
}

// CreateTenant registers a new tenant in trial status
func (s *Service) CreateTenant(ctx context.Context, req CreateRequest) (*Tenant, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	existing, err := s.repo.GetTenantBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, ErrSlugTaken
	}

	plan := req.Plan
	if plan == "" {
		plan = "free"
	}

	tenant := &Tenant{
		ID:         uuid.New(),
		Name:       req.Name,
		Slug:       slug,
		Status:     StatusTrial,
		Plan:       plan,
		OwnerName:  req.OwnerName,
		OwnerEmail: req.OwnerEmail,
		MaxUsers:   req.MaxUsers,
		MaxStorage: req.MaxStorage,
		Metadata:   req.Metadata,
	}

	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug))
	return tenant, nil
}

func (s *Service) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	tenant, err := s.repo.GetTenantByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	return tenant, nil
}

func (s *Service) ListTenants(ctx context.Context, filters *TenantFilters) ([]Tenant, int, error) {
	return s.repo.ListTenants(ctx, filters)
}

// UpdateTenant applies a partial edit from the admin edit form
func (s *Service) UpdateTenant(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Tenant, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.Plan != nil {
		tenant.Plan = *req.Plan
	}
	if req.OwnerName != nil {
		tenant.OwnerName = *req.OwnerName
	}
	if req.OwnerEmail != nil {
		tenant.OwnerEmail = *req.OwnerEmail
	}
	if req.MaxUsers != nil {
		tenant.MaxUsers = *req.MaxUsers
	}
	if req.MaxStorage != nil {
		tenant.MaxStorage = *req.MaxStorage
	}
	if req.Metadata != nil {
		tenant.Metadata = req.Metadata
	}

	if err := s.repo.UpdateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return tenant, nil
}

// ChangeStatus moves a tenant through its lifecycle. Transitions outside
// the allowed set are rejected; tenants are never hard-deleted.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target TenantStatus) (*Tenant, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("unknown tenant status %q", target)
	}

	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.lifecycle.CanTransition(string(tenant.Status), string(target)) {
		return nil, &InvalidTransitionError{From: tenant.Status, To: target}
	}

	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info("tenant status changed",
		zap.String("tenant_id", id.String()),
		zap.String("from", string(tenant.Status)),
		zap.String("to", string(target)))

	tenant.Status = target
	return tenant, nil
}

// AllowedTransitions lists the statuses a tenant may move to next
func (s *Service) AllowedTransitions(status TenantStatus) []string {
	return s.lifecycle.GetAllowedTransitions(string(status))
}

// FilterByStatus narrows an in-memory tenant list
func FilterByStatus(list []Tenant, status TenantStatus) []Tenant {
	filtered := make([]Tenant, 0, len(list))
	for _, tenant := range list {
		if tenant.Status == status {
			filtered = append(filtered, tenant)
		}
	}
	return filtered
}

// SortByName orders an in-memory tenant list alphabetically
func SortByName(list []Tenant) {
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
}
