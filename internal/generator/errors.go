package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity marks requests that exceed a uniqueness pool.
	ErrCapacity = errors.New("capacity exceeded")
	// ErrInvalidConfig marks option values no stage can work with.
	ErrInvalidConfig = errors.New("invalid generator configuration")
	// ErrInvalidInput marks upstream collections that break a stage contract.
	ErrInvalidInput = errors.New("invalid generator input")
)

// CapacityError reports that a requested cardinality exceeds an
// exhaustible pool of unique values. It is fatal and always returned
// before any partial output.
type CapacityError struct {
	Resource  string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded for %s: requested %d, available %d", e.Resource, e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// InfeasibleDistributionError describes a target the generator could not
// honour exactly. The generator clamps to the nearest feasible value and
// keeps going; these are collected as warnings, never returned as errors.
type InfeasibleDistributionError struct {
	Stage     string `json:"stage" yaml:"stage"`
	Target    string `json:"target" yaml:"target"`
	Requested int    `json:"requested" yaml:"requested"`
	Realized  int    `json:"realized" yaml:"realized"`
	Reason    string `json:"reason" yaml:"reason"`
}

func (e InfeasibleDistributionError) Error() string {
	return fmt.Sprintf("%s: %s clamped from %d to %d: %s", e.Stage, e.Target, e.Requested, e.Realized, e.Reason)
}
