package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every lookup miss.
var ErrNotFound = errors.New("referenced entity not found")

// ErrConstraintViolation is matched when the store rejects a write because it
// would break a uniqueness or foreign key constraint.
var ErrConstraintViolation = errors.New("constraint violation")

// ErrOperational is matched by infrastructure faults: unreachable store,
// timeouts, cancellation.
var ErrOperational = errors.New("membership store unavailable")

// ErrUserGroupNotFound is returned when no group matches a membership lookup.
var ErrUserGroupNotFound = &NotFoundError{Entity: "user group"}

// NotFoundError reports a must-exist lookup that resolved nothing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConstraintViolationError wraps the driver error for a rejected insert.
type ConstraintViolationError struct {
	Table string
	Err   error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s on %s: %v", ErrConstraintViolation, e.Table, e.Err)
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

// OperationalError wraps an infrastructure failure during Op.
type OperationalError struct {
	Op  string
	Err error
}

func (e *OperationalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrOperational, e.Op, e.Err)
}

func (e *OperationalError) Is(target error) bool {
	return target == ErrOperational
}

func (e *OperationalError) Unwrap() error {
	return e.Err
}
