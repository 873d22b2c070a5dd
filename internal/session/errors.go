package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	// ErrCredentialAcquisition means the provider rejected the request:
	// expired token, denied role assumption, bad MFA code.
	ErrCredentialAcquisition = errors.New("credential acquisition failed")
	// ErrProviderUnavailable means transient provider errors persisted
	// through every retry.
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnsupportedType     = errors.New("unsupported session type")

	ErrValidation      = workspace.ErrValidation
	ErrSessionNotFound = workspace.ErrNotFound
)

// RestartError reports a region or profile change that was committed while
// restarting the session afterwards failed.
type RestartError struct {
	SessionID string
	Err       error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("change saved but session %s could not be restarted: %v", e.SessionID, e.Err)
}

func (e *RestartError) Unwrap() error { return e.Err }

// classify wraps provider failures in ErrCredentialAcquisition, leaving
// already classified errors and cancellation untouched.
func classify(err error) error {
	for _, known := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		ErrValidation,
		ErrSessionNotFound,
		ErrUnsupportedType,
		ErrProviderUnavailable,
		ErrCredentialAcquisition,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrCredentialAcquisition, err)
}
