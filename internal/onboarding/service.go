package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is the outcome sink for step transitions. Calls are
// fire-and-forget; failures are logged, never propagated.
type Notifier interface {
	NotifySuccess(ctx context.Context, tenantID uuid.UUID, message string)
	NotifyError(ctx context.Context, tenantID uuid.UUID, message string)
}

// Service exposes wizard sessions to the HTTP layer
type Service struct {
	sessions *SessionManager
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the onboarding service
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		sessions: NewSessionManager(store, logger),
		notifier: notifier,
		logger:   logger,
	}
}

// GetOnboarding resolves the tenant's workflow (optionally a specific
// one, optionally creating one) and returns the loaded wizard view.
func (s *Service) GetOnboarding(ctx context.Context, tenantID uuid.UUID, workflowID *uuid.UUID, autoCreate bool) (*View, error) {
	ctrl := s.sessions.Open(tenantID)

	if _, err := ctrl.ResolveWorkflow(ctx, tenantID, workflowID, autoCreate); err != nil {
		return nil, err
	}

	if err := ctrl.LoadSteps(ctx); err != nil {
		if errors.Is(err, ErrNoStepsConfigured) {
			// Legitimate empty result, but it means the step template is
			// missing upstream. Flagged on the view, not treated as done.
			s.logger.Warn("workflow resolved with zero steps",
				zap.String("tenant_id", tenantID.String()))
		} else {
			return nil, err
		}
	}

	view := ctrl.Snapshot()
	return &view, nil
}

// AdvanceStep performs one step transition and reports the outcome to
// the notification sink. On success the returned view reflects the
// refetched server state.
func (s *Service) AdvanceStep(ctx context.Context, tenantID uuid.UUID, stepNumber int, newStatus StepStatus, payload JSONB) (*View, error) {
	ctrl := s.sessions.Open(tenantID)

	// A direct advance without a prior load still needs the workflow
	if ctrl.Snapshot().Workflow == nil {
		if _, err := ctrl.ResolveWorkflow(ctx, tenantID, nil, false); err != nil {
			return nil, err
		}
		if err := ctrl.LoadSteps(ctx); err != nil && !errors.Is(err, ErrNoStepsConfigured) {
			return nil, err
		}
	}

	if err := ctrl.AdvanceStep(ctx, stepNumber, newStatus, payload); err != nil {
		if msg, rejected := IsTransitionRejected(err); rejected {
			// Business-rule rejection: the server's message goes out
			// verbatim, both to the caller and to the sink.
			s.notifier.NotifyError(ctx, tenantID, msg)
		} else {
			s.notifier.NotifyError(ctx, tenantID,
				fmt.Sprintf("failed to update step %d", stepNumber))
		}
		return nil, err
	}

	s.notifier.NotifySuccess(ctx, tenantID,
		fmt.Sprintf("Step %d updated to %s", stepNumber, newStatus))

	view := ctrl.Snapshot()
	return &view, nil
}

// CloseSession tears down the tenant's wizard session state
func (s *Service) CloseSession(tenantID uuid.UUID) {
	s.sessions.Close(tenantID)
}
