package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist for the
// given owner. Existence under another owner is deliberately reported the
// same way.
var ErrNotFound = errors.New("storage: not found")

// ErrAlreadyCompleted is returned when completing a task whose completion
// flag is already set.
var ErrAlreadyCompleted = errors.New("storage: task already completed")
