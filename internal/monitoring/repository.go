package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SnapshotStore computes and persists platform dashboard snapshots. The
// persisted row is shared between the console API and the metrics
// worker, so either process can serve what the other computed.
type SnapshotStore interface {
	Aggregate(ctx context.Context) (*PlatformSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *PlatformSnapshot) error
	LatestSnapshot(ctx context.Context) (*PlatformSnapshot, error)
}

type postgresSnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) SnapshotStore {
	return &postgresSnapshotStore{db: db}
}

// Aggregate recomputes the snapshot from the live tables
func (s *postgresSnapshotStore) Aggregate(ctx context.Context) (*PlatformSnapshot, error) {
	snapshot := &PlatformSnapshot{
		TenantsByStatus: make(map[string]int),
		ComputedAt:      time.Now(),
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) AS count FROM tenants GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tenants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tenant aggregate: %w", err)
		}
		snapshot.TenantsByStatus[status] = count
		snapshot.TotalTenants += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenant aggregates: %w", err)
	}

	err = s.db.GetContext(ctx, &snapshot.ActiveWorkflows,
		"SELECT COUNT(*) FROM onboarding_workflows WHERE status <> 'completed'")
	if err != nil {
		return nil, fmt.Errorf("failed to count active workflows: %w", err)
	}
	err = s.db.GetContext(ctx, &snapshot.CompletedWorkflows,
		"SELECT COUNT(*) FROM onboarding_workflows WHERE status = 'completed'")
	if err != nil {
		return nil, fmt.Errorf("failed to count completed workflows: %w", err)
	}

	totalWorkflows := snapshot.ActiveWorkflows + snapshot.CompletedWorkflows
	if totalWorkflows > 0 {
		snapshot.OnboardingRate = float64(snapshot.CompletedWorkflows) / float64(totalWorkflows)
	}

	err = s.db.GetContext(ctx, &snapshot.FlagOverrides,
		"SELECT COUNT(*) FROM tenant_flag_overrides")
	if err != nil {
		return nil, fmt.Errorf("failed to count flag overrides: %w", err)
	}

	return snapshot, nil
}

// SaveSnapshot upserts the single shared snapshot row
func (s *postgresSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *PlatformSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO platform_snapshots (id, snapshot, computed_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			computed_at = EXCLUDED.computed_at`,
		payload, snapshot.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot loads the persisted snapshot; nil when none exists yet
func (s *postgresSnapshotStore) LatestSnapshot(ctx context.Context) (*PlatformSnapshot, error) {
	var row struct {
		Snapshot   []byte    `db:"snapshot"`
		ComputedAt time.Time `db:"computed_at"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT snapshot, computed_at FROM platform_snapshots WHERE id = 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot PlatformSnapshot
	if err := json.Unmarshal(row.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snapshot.ComputedAt = row.ComputedAt
	return &snapshot, nil
}
