package task

import "errors"

var (
	// ErrTaskNotFound is returned when running a name nobody registered.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDuplicateTask is returned when a name is registered twice.
	ErrDuplicateTask = errors.New("task already registered")
	// ErrInvalidTask is returned for tasks without a name or an action.
	ErrInvalidTask = errors.New("invalid task definition")
	// ErrNoProvider is returned when a runtime has no chain access configured.
	ErrNoProvider = errors.New("runtime has no chain provider")
)
