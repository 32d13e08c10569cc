package onboarding

import "errors"

var (
	// ErrNoStepsConfigured means the workflow resolved and the step fetch
	// succeeded but returned zero rows. The step template is missing
	// upstream; this is not the same as "onboarding complete".
	ErrNoStepsConfigured = errors.New("workflow has no steps configured")

	// ErrProtocol means a server response arrived in an unexpected shape.
	// Never coerced into a success or a business-rule rejection.
	ErrProtocol = errors.New("unexpected response shape from transition endpoint")

	// ErrNoWorkflow means no active workflow exists and creation was not requested
	ErrNoWorkflow = errors.New("tenant has no active onboarding workflow")

	// ErrStepNotFound means the requested step number is not in the loaded list
	ErrStepNotFound = errors.New("step not found in loaded workflow")

	// ErrInvalidStatus means the requested status is not one of the five step statuses
	ErrInvalidStatus = errors.New("invalid step status")
)

// TransitionRejectedError is a business-rule rejection from the server
// (transport succeeded, verdict was success=false). Message is the
// server's error text verbatim.
type TransitionRejectedError struct {
	Message string
}

func (e *TransitionRejectedError) Error() string {
	return e.Message
}

// IsTransitionRejected reports whether err is a business-rule rejection
// and returns the verbatim server message if so.
func IsTransitionRejected(err error) (string, bool) {
	var rejected *TransitionRejectedError
	if errors.As(err, &rejected) {
		return rejected.Message, true
	}
	return "", false
}
