package lifecycle

// StateMachine enforces status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewTenantLifecycle creates the state machine for tenant lifecycle status.
// Tenants are never hard-deleted; archived is the terminal state.
func NewTenantLifecycle() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"trial":     {"active", "cancelled"},
			"active":    {"suspended", "cancelled"},
			"suspended": {"active", "cancelled"}, // allow reinstating suspended tenants
			"cancelled": {"archived"},
			"archived":  {},
		},
	}
}

// NewStepLifecycle creates the state machine for onboarding step status.
// Used only for UI affordance hints; the transition endpoint is
// authoritative. Steps never move backward, so a failed step has no
// client-visible next state.
func NewStepLifecycle() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending":     {"in_progress", "skipped"},
			"in_progress": {"completed", "failed"},
			"failed":      {},
			"completed":   {},
			"skipped":     {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
