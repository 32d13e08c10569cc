package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const snapshotKey = "platform_snapshot"

// PlatformSnapshot is the dashboard's top-level aggregate
type PlatformSnapshot struct {
	TenantsByStatus    map[string]int `json:"tenants_by_status"`
	TotalTenants       int            `json:"total_tenants"`
	ActiveWorkflows    int            `json:"active_workflows"`
	CompletedWorkflows int            `json:"completed_workflows"`
	OnboardingRate     float64        `json:"onboarding_completion_rate"`
	FlagOverrides      int            `json:"flag_overrides"`
	ComputedAt         time.Time      `json:"computed_at"`
}

// Aggregator serves dashboard snapshots: the local cache first, then the
// shared persisted row (kept warm by the metrics worker), recomputing
// only when both are cold.
type Aggregator struct {
	store  SnapshotStore
	cache  *SnapshotCache
	logger *zap.Logger
}

// NewAggregator creates a dashboard aggregator
func NewAggregator(store SnapshotStore, cache *SnapshotCache, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, cache: cache, logger: logger}
}

// GetSnapshot returns the freshest available snapshot
func (a *Aggregator) GetSnapshot(ctx context.Context) (*PlatformSnapshot, error) {
	if cached, ok := a.cache.Get(snapshotKey); ok {
		return cached.(*PlatformSnapshot), nil
	}

	persisted, err := a.store.LatestSnapshot(ctx)
	if err != nil {
		a.logger.Warn("failed to load persisted snapshot", zap.Error(err))
	} else if persisted != nil && time.Since(persisted.ComputedAt) <= a.cache.TTL() {
		a.cache.Set(snapshotKey, persisted)
		return persisted, nil
	}

	return a.Refresh(ctx)
}

// Refresh recomputes the snapshot, persists it for the other process
// and repopulates the local cache
func (a *Aggregator) Refresh(ctx context.Context) (*PlatformSnapshot, error) {
	snapshot, err := a.store.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	a.cache.Set(snapshotKey, snapshot)
	a.logger.Debug("platform snapshot refreshed",
		zap.Int("tenants", snapshot.TotalTenants),
		zap.Int("active_workflows", snapshot.ActiveWorkflows))
	return snapshot, nil
}

// InvalidateForTable drops the cached snapshot when a change event
// arrives for a table the snapshot reads from
func (a *Aggregator) InvalidateForTable(table string) {
	switch table {
	case "tenants", "onboarding_workflows", "onboarding_steps", "tenant_flag_overrides":
		a.cache.Invalidate(snapshotKey)
	}
}
