package onboarding

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the data-plane surface the controller consumes. The backing
// implementation owns all workflow/step records; the console holds no
// authoritative state and no lock.
type Store interface {
	GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error)
	GetActiveWorkflow(ctx context.Context, tenantID uuid.UUID) (*Workflow, error)
	CreateWorkflow(ctx context.Context, tenantID uuid.UUID, forceNew bool) (*Workflow, error)
	ListSteps(ctx context.Context, workflowID uuid.UUID) ([]Step, error)
	AdvanceStep(ctx context.Context, stepID uuid.UUID, status StepStatus, payload JSONB) (*TransitionResult, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	var wf Workflow
	err := s.db.GetContext(ctx, &wf, "SELECT * FROM onboarding_workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &wf, nil
}

func (s *postgresStore) GetActiveWorkflow(ctx context.Context, tenantID uuid.UUID) (*Workflow, error) {
	var wf Workflow
	err := s.db.GetContext(ctx, &wf, `
		SELECT * FROM onboarding_workflows
		WHERE tenant_id = $1 AND status <> 'completed'
		ORDER BY created_at DESC
		LIMIT 1`, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active workflow: %w", err)
	}
	return &wf, nil
}

// CreateWorkflow calls the create_onboarding_workflow database function,
// which instantiates the workflow and its steps from the server-side
// template. The function returns the existing active workflow when one
// exists and forceNew is false, so creation is idempotent at the server
// boundary.
func (s *postgresStore) CreateWorkflow(ctx context.Context, tenantID uuid.UUID, forceNew bool) (*Workflow, error) {
	var workflowID uuid.UUID
	err := s.db.GetContext(ctx, &workflowID,
		"SELECT create_onboarding_workflow($1, $2)", tenantID, forceNew)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	wf, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("%w: create returned id %s but workflow not found", ErrProtocol, workflowID)
	}
	return wf, nil
}

func (s *postgresStore) ListSteps(ctx context.Context, workflowID uuid.UUID) ([]Step, error) {
	var steps []Step
	err := s.db.SelectContext(ctx, &steps, `
		SELECT * FROM onboarding_steps
		WHERE workflow_id = $1
		ORDER BY step_number ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	return steps, nil
}

// AdvanceStep invokes the advance_onboarding_step database function. The
// function validates the transition, merges payload into step_data
// (existing keys the payload does not mention are preserved) and may
// also advance workflow.current_step or complete the workflow. Its
// verdict is decoded as-is; a verdict without a boolean "success" field
// is a protocol error, never a success.
func (s *postgresStore) AdvanceStep(ctx context.Context, stepID uuid.UUID, status StepStatus, payload JSONB) (*TransitionResult, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step payload: %w", err)
	}

	var raw []byte
	err = s.db.GetContext(ctx, &raw,
		"SELECT advance_onboarding_step($1, $2, $3::jsonb)", stepID, string(status), payloadJSON)
	if err != nil {
		return nil, fmt.Errorf("advance call failed: %w", err)
	}

	return decodeTransitionVerdict(raw)
}

func decodeTransitionVerdict(raw []byte) (*TransitionResult, error) {
	var verdict map[string]interface{}
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	success, ok := verdict["success"].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: missing success field", ErrProtocol)
	}

	result := &TransitionResult{Success: success}
	if msg, ok := verdict["error"].(string); ok {
		result.Error = msg
	}
	if !success && result.Error == "" {
		return nil, fmt.Errorf("%w: rejection without error message", ErrProtocol)
	}
	return result, nil
}

// IsProtocolError reports whether err is a malformed-response defect
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}
