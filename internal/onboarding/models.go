package onboarding

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clearstack/admin-console/admin-console-backend/pkg/lifecycle"
)

var stepTransitions = lifecycle.NewStepLifecycle()

type WorkflowStatus string

const (
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowCompleted  WorkflowStatus = "completed"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
	StepFailed     StepStatus = "failed"
)

// IsValid reports whether s is one of the five step statuses.
func (s StepStatus) IsValid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepSkipped, StepFailed:
		return true
	}
	return false
}

// JSONB wraps a free-form map for Postgres jsonb columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected jsonb source type %T", src)
	}
	return json.Unmarshal(b, j)
}

// Workflow is the server-tracked onboarding process for one tenant.
// At most one non-completed workflow exists per tenant at a time.
type Workflow struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	TenantID    uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	CurrentStep int            `json:"current_step" db:"current_step"`
	TotalSteps  int            `json:"total_steps" db:"total_steps"`
	Status      WorkflowStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// Step is one ordered unit of work within a workflow. Step numbers are
// 1-based, gapless and unique within a workflow. Steps are created
// server-side from a template when the workflow is created and are
// mutated only through the advance call.
type Step struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	WorkflowID uuid.UUID  `json:"workflow_id" db:"workflow_id"`
	StepNumber int        `json:"step_number" db:"step_number"`
	Title      string     `json:"title" db:"title"`
	Status     StepStatus `json:"step_status" db:"step_status"`
	StepData   JSONB      `json:"step_data" db:"step_data"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// StepView is the projection of a step the console renders. Missing
// step_data fields get explicit defaults rather than ad hoc fallbacks.
type StepView struct {
	ID                   uuid.UUID  `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Status               StepStatus `json:"status"`
	IsRequired           bool       `json:"is_required"`
	EstimatedTimeMinutes int        `json:"estimated_time_minutes"`
	HelpText             string     `json:"help_text"`
	StepNumber           int        `json:"step_number"`
	// AllowedNextStatuses is a UI affordance hint only; the transition
	// endpoint stays authoritative.
	AllowedNextStatuses []string `json:"allowed_next_statuses"`
}

const (
	defaultEstimatedMinutes = 15
	defaultIsRequired       = true
)

// NewStepView projects a step record into its view model, applying the
// documented defaults for absent step_data fields.
func NewStepView(s Step) StepView {
	view := StepView{
		ID:                   s.ID,
		Title:                s.Title,
		Description:          fmt.Sprintf("Step %d of the onboarding process", s.StepNumber),
		Status:               s.Status,
		IsRequired:           defaultIsRequired,
		EstimatedTimeMinutes: defaultEstimatedMinutes,
		StepNumber:           s.StepNumber,
	}

	if desc, ok := s.StepData["description"].(string); ok && desc != "" {
		view.Description = desc
	}
	if required, ok := s.StepData["required"].(bool); ok {
		view.IsRequired = required
	}
	if est, ok := s.StepData["estimated_minutes"].(float64); ok && est > 0 {
		view.EstimatedTimeMinutes = int(est)
	}
	if help, ok := s.StepData["help_text"].(string); ok {
		view.HelpText = help
	}

	view.AllowedNextStatuses = stepTransitions.GetAllowedTransitions(string(s.Status))

	return view
}

// TransitionResult is the verdict of the server-side advance call.
// Error carries the server's message verbatim when Success is false.
type TransitionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// View is the full wizard state returned to the console
type View struct {
	Workflow          *Workflow  `json:"workflow"`
	Steps             []StepView `json:"steps"`
	CurrentStepIndex  int        `json:"current_step_index"`
	ProgressPercent   int        `json:"progress_percent"`
	RemainingMinutes  int        `json:"remaining_minutes"`
	NoStepsConfigured bool       `json:"no_steps_configured,omitempty"`
}
