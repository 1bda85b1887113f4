package engine

import "errors"

var (
	// ErrDefinitionNotFound reports a lookup of a missing or archived
	// automation definition.
	ErrDefinitionNotFound = errors.New("automation definition not found")

	// ErrConcurrentActivation means another activation currently holds the
	// execution's single-writer lease. Callers back off and re-check.
	ErrConcurrentActivation = errors.New("execution is claimed by another activation")

	// ErrExecutionNotFound reports an activation of an unknown execution id.
	ErrExecutionNotFound = errors.New("execution not found")
)
