package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTenant(ctx context.Context, tenant *Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockRepository) GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *MockRepository) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *MockRepository) ListTenants(ctx context.Context, filters *TenantFilters) ([]Tenant, int, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]Tenant), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status TenantStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func TestCreateTenant(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetTenantBySlug", ctx, "acme-corp").Return(nil, nil)
	mockRepo.On("CreateTenant", ctx, mock.AnythingOfType("*tenants.Tenant")).Return(nil)

	tenant, err := service.CreateTenant(ctx, CreateRequest{
		Name:       "Acme Corp",
		Slug:       "Acme-Corp",
		OwnerEmail: "admin@acme.test",
	})

	require.NoError(t, err)
	assert.Equal(t, "acme-corp", tenant.Slug)
	assert.Equal(t, StatusTrial, tenant.Status)
	assert.Equal(t, "free", tenant.Plan)

	mockRepo.AssertExpectations(t)
}

func TestCreateTenantSlugConflict(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("GetTenantBySlug", ctx, "acme").Return(&Tenant{ID: uuid.New(), Slug: "acme"}, nil)

	_, err := service.CreateTenant(ctx, CreateRequest{Name: "Acme", Slug: "acme"})
	assert.ErrorIs(t, err, ErrSlugTaken)
	mockRepo.AssertNotCalled(t, "CreateTenant")
}

func TestChangeStatusAllowed(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	ctx := context.Background()
	id := uuid.New()
	mockRepo.On("GetTenantByID", ctx, id).Return(&Tenant{ID: id, Status: StatusTrial}, nil)
	mockRepo.On("UpdateStatus", ctx, id, StatusActive).Return(nil)

	tenant, err := service.ChangeStatus(ctx, id, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, tenant.Status)
	mockRepo.AssertExpectations(t)
}

func TestChangeStatusRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	ctx := context.Background()
	id := uuid.New()
	mockRepo.On("GetTenantByID", ctx, id).Return(&Tenant{ID: id, Status: StatusArchived}, nil)

	_, err := service.ChangeStatus(ctx, id, StatusActive)
	require.Error(t, err)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusArchived, invalid.From)
	assert.Equal(t, StatusActive, invalid.To)
	mockRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestFilterAndSortHelpers(t *testing.T) {
	list := []Tenant{
		{Name: "zeta", Status: StatusActive},
		{Name: "Alpha", Status: StatusTrial},
		{Name: "beta", Status: StatusActive},
	}

	active := FilterByStatus(list, StatusActive)
	assert.Len(t, active, 2)

	SortByName(list)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}
