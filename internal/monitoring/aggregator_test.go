package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Aggregate(ctx context.Context) (*PlatformSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PlatformSnapshot), args.Error(1)
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *PlatformSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) LatestSnapshot(ctx context.Context) (*PlatformSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PlatformSnapshot), args.Error(1)
}

func TestGetSnapshotServesPersistedRowOnColdCache(t *testing.T) {
	store := new(MockSnapshotStore)
	cache := NewSnapshotCache(5 * time.Minute)
	defer cache.Stop()
	aggregator := NewAggregator(store, cache, zap.NewNop())

	// Computed by another process, visible through the shared row
	persisted := &PlatformSnapshot{TotalTenants: 12, ComputedAt: time.Now()}
	store.On("LatestSnapshot", mock.Anything).Return(persisted, nil)

	snapshot, err := aggregator.GetSnapshot(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 12, snapshot.TotalTenants)
	store.AssertNotCalled(t, "Aggregate", mock.Anything)
}

func TestGetSnapshotRecomputesWhenPersistedRowStale(t *testing.T) {
	store := new(MockSnapshotStore)
	cache := NewSnapshotCache(time.Minute)
	defer cache.Stop()
	aggregator := NewAggregator(store, cache, zap.NewNop())

	stale := &PlatformSnapshot{TotalTenants: 3, ComputedAt: time.Now().Add(-time.Hour)}
	fresh := &PlatformSnapshot{TotalTenants: 4, ComputedAt: time.Now()}
	store.On("LatestSnapshot", mock.Anything).Return(stale, nil)
	store.On("Aggregate", mock.Anything).Return(fresh, nil)
	store.On("SaveSnapshot", mock.Anything, fresh).Return(nil)

	snapshot, err := aggregator.GetSnapshot(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 4, snapshot.TotalTenants)
	store.AssertCalled(t, "SaveSnapshot", mock.Anything, fresh)
}

func TestRefreshPersistsSnapshot(t *testing.T) {
	store := new(MockSnapshotStore)
	cache := NewSnapshotCache(time.Minute)
	defer cache.Stop()
	aggregator := NewAggregator(store, cache, zap.NewNop())

	computed := &PlatformSnapshot{TotalTenants: 7, ComputedAt: time.Now()}
	store.On("Aggregate", mock.Anything).Return(computed, nil)
	store.On("SaveSnapshot", mock.Anything, computed).Return(nil)

	snapshot, err := aggregator.Refresh(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 7, snapshot.TotalTenants)
	store.AssertNumberOfCalls(t, "SaveSnapshot", 1)

	// The refreshed snapshot is now cached locally
	again, err := aggregator.GetSnapshot(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, snapshot, again)
	store.AssertNotCalled(t, "LatestSnapshot", mock.Anything)
}
