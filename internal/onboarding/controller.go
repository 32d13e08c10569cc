package onboarding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loadMarker guards against re-entrant or duplicate step fetches for the
// same workflow. It is owned by the controller instance, reset whenever
// the workflow identity changes and torn down on Reset.
type loadMarker struct {
	workflowID uuid.UUID
	loaded     bool
	loading    bool
}

// Controller presents a tenant's onboarding workflow and its steps as a
// stable view model and provides the single safe mutation path for
// advancing a step. Server records are the source of truth; local state
// is refetched after every mutation.
//
// One controller serves one open wizard session. All methods are safe
// for concurrent use; the marker check-and-set is atomic under mu so a
// step fetch never runs concurrently with itself for the same workflow.
type Controller struct {
	store  Store
	logger *zap.Logger

	// resolveMu serializes workflow resolution so two near-simultaneous
	// resolves with autoCreate can never issue two create calls
	resolveMu sync.Mutex

	mu       sync.Mutex
	workflow *Workflow
	steps    []StepView
	cursor   int
	marker   loadMarker
}

// NewController creates a controller bound to one wizard session
func NewController(store Store, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		logger: logger,
	}
}

// ResolveWorkflow loads the workflow identified by explicitWorkflowID,
// or the tenant's current non-completed workflow, creating one when none
// exists and autoCreate is set. Creation is idempotent at the server
// boundary; this method's obligation is only to never issue two create
// calls concurrently. It does not fetch steps.
func (c *Controller) ResolveWorkflow(ctx context.Context, tenantID uuid.UUID, explicitWorkflowID *uuid.UUID, autoCreate bool) (*Workflow, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id is required")
	}

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	var wf *Workflow
	var err error

	if explicitWorkflowID != nil {
		wf, err = c.store.GetWorkflow(ctx, *explicitWorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workflow: %w", err)
		}
		if wf == nil {
			return nil, fmt.Errorf("workflow %s not found", *explicitWorkflowID)
		}
	} else {
		wf, err = c.store.GetActiveWorkflow(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workflow: %w", err)
		}
		if wf == nil {
			if !autoCreate {
				return nil, ErrNoWorkflow
			}
			wf, err = c.store.CreateWorkflow(ctx, tenantID, false)
			if err != nil {
				return nil, fmt.Errorf("failed to create workflow: %w", err)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A different workflow identity invalidates everything the previous
	// one loaded, including the loaded flag.
	if c.workflow == nil || c.workflow.ID != wf.ID {
		c.steps = nil
		c.cursor = 0
		c.marker = loadMarker{}
	}
	c.workflow = wf

	return wf, nil
}

// LoadSteps fetches the resolved workflow's steps and projects them into
// view models. The call is a no-op when a load is already in flight, or
// when this workflow's steps are already loaded. The loading flag is set
// before the first suspension point and cleared on both outcomes.
func (c *Controller) LoadSteps(ctx context.Context) error {
	c.mu.Lock()
	if c.workflow == nil {
		c.mu.Unlock()
		return ErrNoWorkflow
	}
	if c.marker.loading {
		c.mu.Unlock()
		return nil
	}
	if c.marker.loaded && c.marker.workflowID == c.workflow.ID {
		c.mu.Unlock()
		return nil
	}

	workflowID := c.workflow.ID
	c.marker = loadMarker{workflowID: workflowID, loading: true}
	c.mu.Unlock()

	steps, err := c.store.ListSteps(ctx, workflowID)

	c.mu.Lock()
	defer c.mu.Unlock()

	// The session may have been reset or moved to another workflow while
	// the fetch was outstanding; its result must not land.
	if c.workflow == nil || c.workflow.ID != workflowID {
		c.logger.Debug("discarding stale step load", zap.String("workflow_id", workflowID.String()))
		return nil
	}

	if err != nil {
		c.steps = nil
		c.marker = loadMarker{}
		return fmt.Errorf("failed to load steps: %w", err)
	}

	views := make([]StepView, 0, len(steps))
	for _, step := range steps {
		views = append(views, NewStepView(step))
	}
	c.steps = views

	// Cursor lands on the first step still needing work. With nothing
	// pending or in progress it stays where it was.
	for i, view := range views {
		if view.Status == StepPending || view.Status == StepInProgress {
			c.cursor = i
			break
		}
	}

	c.marker = loadMarker{workflowID: workflowID, loaded: true}

	if len(views) == 0 {
		return ErrNoStepsConfigured
	}
	return nil
}

// AdvanceStep issues the single server-side transition call for the
// given step and, on success, refetches both the workflow and the step
// list — the server may have advanced current_step, completed the
// workflow, or done anything else invisible to this client.
func (c *Controller) AdvanceStep(ctx context.Context, stepNumber int, newStatus StepStatus, payload JSONB) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	c.mu.Lock()
	if c.workflow == nil {
		c.mu.Unlock()
		return ErrNoWorkflow
	}
	workflowID := c.workflow.ID

	var stepID uuid.UUID
	found := false
	for _, view := range c.steps {
		if view.StepNumber == stepNumber {
			stepID = view.ID
			found = true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: step %d", ErrStepNotFound, stepNumber)
	}

	result, err := c.store.AdvanceStep(ctx, stepID, newStatus, payload)
	if err != nil {
		// Transport or protocol failure. The previously loaded list stays
		// intact as the last known good state.
		return err
	}
	if !result.Success {
		return &TransitionRejectedError{Message: result.Error}
	}

	return c.refresh(ctx, workflowID)
}

// refresh refetches the workflow record and forces a step reload
func (c *Controller) refresh(ctx context.Context, workflowID uuid.UUID) error {
	wf, err := c.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to refresh workflow: %w", err)
	}

	c.mu.Lock()
	if c.workflow == nil || c.workflow.ID != workflowID {
		c.mu.Unlock()
		return nil
	}
	if wf != nil {
		c.workflow = wf
	}
	c.marker.loaded = false
	c.mu.Unlock()

	if err := c.LoadSteps(ctx); err != nil && err != ErrNoStepsConfigured {
		return err
	}
	return nil
}

// Reset clears all session state. Called when the hosting wizard closes
// so reopening never shows a previous session's data.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workflow = nil
	c.steps = nil
	c.cursor = 0
	c.marker = loadMarker{}
}

// ProgressPercent is the share of completed steps, 0 for an empty list
func (c *Controller) ProgressPercent() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := len(c.steps)
	if total == 0 {
		return 0
	}
	completed := 0
	for _, view := range c.steps {
		if view.Status == StepCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// RemainingMinutes sums estimates for not-completed steps at or after the cursor
func (c *Controller) RemainingMinutes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := 0
	for i := c.cursor; i < len(c.steps); i++ {
		if c.steps[i].Status != StepCompleted {
			remaining += c.steps[i].EstimatedTimeMinutes
		}
	}
	return remaining
}

// CanAdvanceTo reports whether the console may jump directly to the step
// at index: completed steps may always be reviewed, otherwise only the
// current step or its immediate neighbours are reachable. This is a
// navigation convenience; the transition endpoint remains authoritative.
func (c *Controller) CanAdvanceTo(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.steps) {
		return false
	}
	if c.steps[index].Status == StepCompleted {
		return true
	}
	diff := index - c.cursor
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// Snapshot returns the current view model
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	steps := make([]StepView, len(c.steps))
	copy(steps, c.steps)
	wf := c.workflow
	cursor := c.cursor
	loaded := c.marker.loaded
	c.mu.Unlock()

	return View{
		Workflow:          wf,
		Steps:             steps,
		CurrentStepIndex:  cursor,
		ProgressPercent:   c.ProgressPercent(),
		RemainingMinutes:  c.RemainingMinutes(),
		NoStepsConfigured: loaded && len(steps) == 0,
	}
}
