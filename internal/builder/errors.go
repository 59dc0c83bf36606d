package builder

import (
	"errors"
	"fmt"
)

// ErrConstraintViolation marks a record the store refused to accept.
var ErrConstraintViolation = errors.New("constraint violation")

// ConstraintViolationError reports the first record that failed to insert.
// The load transaction is rolled back when it is returned.
type ConstraintViolationError struct {
	Table string
	Key   string
	Err   error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation inserting %s %s: %v", e.Table, e.Key, e.Err)
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}
