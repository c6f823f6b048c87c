package analysis

import "errors"

var (
	// ErrNotFound is returned when a task, config, or image does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status update would break the task lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidConfig wraps config validation failures.
	ErrInvalidConfig = errors.New("invalid analysis config")
)
