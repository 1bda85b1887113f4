package action

import (
	"errors"
	"fmt"
)

// Data problems, never retried.
var (
	ErrMissingRecipient     = errors.New("missing recipient")
	ErrChannelNotConfigured = errors.New("outbound channel not configured")
	ErrUnknownActionType    = errors.New("unknown action type")
)

// ProviderError wraps a messaging provider failure. Transient failures are
// retried with bounded backoff by the executor; permanent ones fail the
// execution immediately.
type ProviderError struct {
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("provider error (%s): %v", kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports a retryable provider failure.
func Transient(err error) error {
	return &ProviderError{Transient: true, Err: err}
}

// Permanent reports a non-retryable provider failure.
func Permanent(err error) error {
	return &ProviderError{Transient: false, Err: err}
}

// IsRetryable classifies an action failure. Only transient provider errors
// qualify; everything else is a data or configuration problem.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Transient
}
