package onboarding

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Workflow), args.Error(1)
}

func (m *MockStore) GetActiveWorkflow(ctx context.Context, tenantID uuid.UUID) (*Workflow, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Workflow), args.Error(1)
}

func (m *MockStore) CreateWorkflow(ctx context.Context, tenantID uuid.UUID, forceNew bool) (*Workflow, error) {
	args := m.Called(ctx, tenantID, forceNew)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Workflow), args.Error(1)
}

func (m *MockStore) ListSteps(ctx context.Context, workflowID uuid.UUID) ([]Step, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Step), args.Error(1)
}

func (m *MockStore) AdvanceStep(ctx context.Context, stepID uuid.UUID, status StepStatus, payload JSONB) (*TransitionResult, error) {
	args := m.Called(ctx, stepID, status, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransitionResult), args.Error(1)
}

func makeWorkflow(tenantID uuid.UUID, total int) *Workflow {
	return &Workflow{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TotalSteps: total,
		Status:     WorkflowInProgress,
	}
}

func makeSteps(workflowID uuid.UUID, statuses ...StepStatus) []Step {
	steps := make([]Step, len(statuses))
	for i, status := range statuses {
		steps[i] = Step{
			ID:         uuid.New(),
			WorkflowID: workflowID,
			StepNumber: i + 1,
			Title:      "Step",
			Status:     status,
		}
	}
	return steps
}

func loadedController(t *testing.T, store *MockStore, tenantID uuid.UUID, wf *Workflow, steps []Step) *Controller {
	t.Helper()
	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(wf, nil)
	store.On("ListSteps", mock.Anything, wf.ID).Return(steps, nil)

	ctrl := NewController(store, zap.NewNop())
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)
	err = ctrl.LoadSteps(context.Background())
	if len(steps) == 0 {
		require.ErrorIs(t, err, ErrNoStepsConfigured)
	} else {
		require.NoError(t, err)
	}
	return ctrl
}

func TestResolveWorkflowCreatesExactlyOnce(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 4)

	// First resolver finds nothing and creates; every later lookup sees
	// the created workflow.
	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(nil, nil).Once()
	store.On("CreateWorkflow", mock.Anything, tenantID, false).Return(wf, nil).Once()
	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(wf, nil)

	ctrl := NewController(store, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]*Workflow, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, true)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, wf.ID, results[0].ID)
	assert.Equal(t, wf.ID, results[1].ID)
	store.AssertNumberOfCalls(t, "CreateWorkflow", 1)
}

// gateStore blocks ListSteps until released so overlapping loads can be observed
type gateStore struct {
	wf         *Workflow
	steps      []Step
	gate       chan struct{}
	started    chan struct{}
	once       sync.Once
	mu         sync.Mutex
	fetchCount int
}

func (g *gateStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	return g.wf, nil
}

func (g *gateStore) GetActiveWorkflow(ctx context.Context, tenantID uuid.UUID) (*Workflow, error) {
	return g.wf, nil
}

func (g *gateStore) CreateWorkflow(ctx context.Context, tenantID uuid.UUID, forceNew bool) (*Workflow, error) {
	return g.wf, nil
}

func (g *gateStore) ListSteps(ctx context.Context, workflowID uuid.UUID) ([]Step, error) {
	g.mu.Lock()
	g.fetchCount++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })
	<-g.gate
	return g.steps, nil
}

func (g *gateStore) AdvanceStep(ctx context.Context, stepID uuid.UUID, status StepStatus, payload JSONB) (*TransitionResult, error) {
	return &TransitionResult{Success: true}, nil
}

func TestLoadStepsNoDuplicateFetch(t *testing.T) {
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 2)
	store := &gateStore{
		wf:      wf,
		steps:   makeSteps(wf.ID, StepPending, StepPending),
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}

	ctrl := NewController(store, zap.NewNop())
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- ctrl.LoadSteps(context.Background())
	}()

	// Wait until the first load is in flight, then issue a second one.
	<-store.started
	require.NoError(t, ctrl.LoadSteps(context.Background())) // no-op while loading

	close(store.gate)
	require.NoError(t, <-firstDone)

	// And a third after completion is equally a no-op for the same workflow
	require.NoError(t, ctrl.LoadSteps(context.Background()))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.fetchCount)
}

func TestCursorLandsOnFirstUnfinishedStep(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 4)
	steps := makeSteps(wf.ID, StepCompleted, StepCompleted, StepPending, StepPending)

	ctrl := loadedController(t, store, tenantID, wf, steps)

	assert.Equal(t, 2, ctrl.Snapshot().CurrentStepIndex)
}

func TestCursorUnchangedWhenAllCompleted(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 3)
	steps := makeSteps(wf.ID, StepCompleted, StepCompleted, StepCompleted)

	ctrl := loadedController(t, store, tenantID, wf, steps)

	assert.Equal(t, 0, ctrl.Snapshot().CurrentStepIndex)
	assert.Equal(t, 100, ctrl.ProgressPercent())
}

func TestProgressPercent(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 4)
	steps := makeSteps(wf.ID, StepCompleted, StepCompleted, StepCompleted, StepPending)

	ctrl := loadedController(t, store, tenantID, wf, steps)

	assert.Equal(t, 75, ctrl.ProgressPercent())
}

func TestProgressPercentEmptyList(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 0)

	ctrl := loadedController(t, store, tenantID, wf, []Step{})

	assert.Equal(t, 0, ctrl.ProgressPercent())
	assert.True(t, ctrl.Snapshot().NoStepsConfigured)
}

func TestCanAdvanceToAdjacencyRule(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 5)
	// Step 2 was skipped, so the cursor lands on index 2
	steps := makeSteps(wf.ID, StepCompleted, StepSkipped, StepPending, StepPending, StepPending)

	ctrl := loadedController(t, store, tenantID, wf, steps)
	require.Equal(t, 2, ctrl.Snapshot().CurrentStepIndex)

	assert.True(t, ctrl.CanAdvanceTo(0))  // completed, always reviewable
	assert.True(t, ctrl.CanAdvanceTo(1))  // adjacent
	assert.True(t, ctrl.CanAdvanceTo(2))  // current
	assert.True(t, ctrl.CanAdvanceTo(3))  // adjacent
	assert.False(t, ctrl.CanAdvanceTo(4)) // not completed, not adjacent
	assert.False(t, ctrl.CanAdvanceTo(-1))
	assert.False(t, ctrl.CanAdvanceTo(5))
}

func TestRemainingMinutes(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 3)
	steps := makeSteps(wf.ID, StepCompleted, StepPending, StepPending)
	steps[1].StepData = JSONB{"estimated_minutes": float64(30)}
	// steps[2] falls back to the 15 minute default

	ctrl := loadedController(t, store, tenantID, wf, steps)

	assert.Equal(t, 45, ctrl.RemainingMinutes())
}

func TestSessionCloseResetsState(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 2)
	steps := makeSteps(wf.ID, StepCompleted, StepPending)

	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(wf, nil)
	store.On("ListSteps", mock.Anything, wf.ID).Return(steps, nil)

	manager := NewSessionManager(store, zap.NewNop())
	ctrl := manager.Open(tenantID)
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)
	require.NoError(t, ctrl.LoadSteps(context.Background()))
	require.Len(t, ctrl.Snapshot().Steps, 2)

	manager.Close(tenantID)

	// Reopening shows a clean session, nothing from the previous one
	reopened := manager.Open(tenantID)
	view := reopened.Snapshot()
	assert.Nil(t, view.Workflow)
	assert.Empty(t, view.Steps)
	assert.Equal(t, 0, view.CurrentStepIndex)
}

func TestAdvanceStepRejectionSurfacedVerbatim(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 3)
	steps := makeSteps(wf.ID, StepCompleted, StepPending, StepPending)

	ctrl := loadedController(t, store, tenantID, wf, steps)

	store.On("AdvanceStep", mock.Anything, steps[1].ID, StepCompleted, mock.Anything).
		Return(&TransitionResult{Success: false, Error: "step 2 not yet in progress"}, nil)

	err := ctrl.AdvanceStep(context.Background(), 2, StepCompleted, nil)
	require.Error(t, err)

	msg, rejected := IsTransitionRejected(err)
	assert.True(t, rejected)
	assert.Equal(t, "step 2 not yet in progress", msg)

	// The previously loaded list stays intact as last known good state
	assert.Len(t, ctrl.Snapshot().Steps, 3)
}

func TestAdvanceStepRefetchesOnSuccess(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 2)
	steps := makeSteps(wf.ID, StepInProgress, StepPending)
	refreshed := makeSteps(wf.ID, StepCompleted, StepInProgress)
	refreshed[0].ID = steps[0].ID
	refreshed[1].ID = steps[1].ID

	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(wf, nil)
	store.On("ListSteps", mock.Anything, wf.ID).Return(steps, nil).Once()
	store.On("ListSteps", mock.Anything, wf.ID).Return(refreshed, nil)
	store.On("AdvanceStep", mock.Anything, steps[0].ID, StepCompleted, mock.Anything).
		Return(&TransitionResult{Success: true}, nil)
	store.On("GetWorkflow", mock.Anything, wf.ID).Return(wf, nil)

	ctrl := NewController(store, zap.NewNop())
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)
	require.NoError(t, ctrl.LoadSteps(context.Background()))

	err = ctrl.AdvanceStep(context.Background(), 1, StepCompleted, JSONB{"note": "done"})
	require.NoError(t, err)

	view := ctrl.Snapshot()
	assert.Equal(t, StepCompleted, view.Steps[0].Status)
	assert.Equal(t, 1, view.CurrentStepIndex)
	assert.Equal(t, 50, view.ProgressPercent)
}

func TestAdvanceStepUnknownNumber(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 1)
	steps := makeSteps(wf.ID, StepPending)

	ctrl := loadedController(t, store, tenantID, wf, steps)

	err := ctrl.AdvanceStep(context.Background(), 7, StepCompleted, nil)
	assert.ErrorIs(t, err, ErrStepNotFound)

	err = ctrl.AdvanceStep(context.Background(), 1, StepStatus("finished"), nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestLoadStepsFailureClearsMarkerForRetry(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	wf := makeWorkflow(tenantID, 2)

	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(wf, nil)
	store.On("ListSteps", mock.Anything, wf.ID).Return(nil, assert.AnError).Once()
	store.On("ListSteps", mock.Anything, wf.ID).Return(makeSteps(wf.ID, StepPending, StepPending), nil)

	ctrl := NewController(store, zap.NewNop())
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)

	require.Error(t, ctrl.LoadSteps(context.Background()))
	assert.Empty(t, ctrl.Snapshot().Steps)

	// The failed load must not block a retry behind a stale marker
	require.NoError(t, ctrl.LoadSteps(context.Background()))
	assert.Len(t, ctrl.Snapshot().Steps, 2)
}

func TestResolveDifferentWorkflowResetsLoadedState(t *testing.T) {
	store := new(MockStore)
	tenantID := uuid.New()
	first := makeWorkflow(tenantID, 1)
	second := makeWorkflow(tenantID, 1)

	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(first, nil).Once()
	store.On("ListSteps", mock.Anything, first.ID).Return(makeSteps(first.ID, StepPending), nil)
	store.On("GetActiveWorkflow", mock.Anything, tenantID).Return(second, nil)
	store.On("ListSteps", mock.Anything, second.ID).Return(makeSteps(second.ID, StepCompleted), nil)

	ctrl := NewController(store, zap.NewNop())
	_, err := ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)
	require.NoError(t, ctrl.LoadSteps(context.Background()))
	require.Len(t, ctrl.Snapshot().Steps, 1)

	// Workflow identity changed: the loaded flag from the first workflow
	// must not suppress the new fetch.
	_, err = ctrl.ResolveWorkflow(context.Background(), tenantID, nil, false)
	require.NoError(t, err)
	require.NoError(t, ctrl.LoadSteps(context.Background()))

	view := ctrl.Snapshot()
	require.Len(t, view.Steps, 1)
	assert.Equal(t, StepCompleted, view.Steps[0].Status)
	store.AssertNumberOfCalls(t, "ListSteps", 2)
}

func TestDecodeTransitionVerdict(t *testing.T) {
	result, err := decodeTransitionVerdict([]byte(`{"success": true}`))
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = decodeTransitionVerdict([]byte(`{"success": false, "error": "predecessor incomplete"}`))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "predecessor incomplete", result.Error)

	// Malformed verdicts are protocol errors, never successes
	_, err = decodeTransitionVerdict([]byte(`{"ok": true}`))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = decodeTransitionVerdict([]byte(`not json`))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = decodeTransitionVerdict([]byte(`{"success": false}`))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestStepViewDefaults(t *testing.T) {
	step := Step{
		ID:         uuid.New(),
		StepNumber: 3,
		Title:      "Configure billing",
		Status:     StepPending,
	}

	view := NewStepView(step)
	assert.Equal(t, "Step 3 of the onboarding process", view.Description)
	assert.True(t, view.IsRequired)
	assert.Equal(t, 15, view.EstimatedTimeMinutes)
	assert.Empty(t, view.HelpText)

	step.StepData = JSONB{
		"description":       "Connect a payment method",
		"required":          false,
		"estimated_minutes": float64(5),
		"help_text":         "See the billing guide",
	}
	view = NewStepView(step)
	assert.Equal(t, "Connect a payment method", view.Description)
	assert.False(t, view.IsRequired)
	assert.Equal(t, 5, view.EstimatedTimeMinutes)
	assert.Equal(t, "See the billing guide", view.HelpText)
}

func TestStepViewTransitionHints(t *testing.T) {
	view := NewStepView(Step{ID: uuid.New(), StepNumber: 1, Status: StepPending})
	assert.ElementsMatch(t, []string{"in_progress", "skipped"}, view.AllowedNextStatuses)

	view = NewStepView(Step{ID: uuid.New(), StepNumber: 2, Status: StepInProgress})
	assert.ElementsMatch(t, []string{"completed", "failed"}, view.AllowedNextStatuses)

	// no backward moves: failed, completed and skipped offer nothing
	for _, status := range []StepStatus{StepFailed, StepCompleted, StepSkipped} {
		view = NewStepView(Step{ID: uuid.New(), StepNumber: 3, Status: status})
		assert.Empty(t, view.AllowedNextStatuses)
	}
}
