package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dataset-service/internal/generator"
	"dataset-service/internal/repository"
)

// ErrValidationFailed marks a report with at least one failed check.
var ErrValidationFailed = errors.New("dataset validation failed")

// maxOffending caps the identifiers kept per check.
const maxOffending = 5

// Check is the outcome of one named validation rule.
type Check struct {
	Name      string   `json:"name" yaml:"name"`
	Passed    bool     `json:"passed" yaml:"passed"`
	Observed  float64  `json:"observed" yaml:"observed"`
	Target    float64  `json:"target" yaml:"target"`
	Tolerance float64  `json:"tolerance" yaml:"tolerance"`
	Count     int      `json:"count" yaml:"count"`
	Offending []string `json:"offending,omitempty" yaml:"offending,omitempty"`
	Detail    string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// offend records an offending identifier, keeping the first few.
func (c *Check) offend(id string) {
	c.Count++
	if len(c.Offending) < maxOffending {
		c.Offending = append(c.Offending, id)
	}
}

// Stats are informational measurements that never fail a report.
type Stats struct {
	Counts           map[string]int64    `json:"counts" yaml:"counts"`
	ItemsPerOrder    map[string]float64  `json:"items_per_order" yaml:"items_per_order"`
	CategoryMix      map[string]float64  `json:"category_mix" yaml:"category_mix"`
	TopQuintileShare float64             `json:"top_quintile_share" yaml:"top_quintile_share"`
	SeasonalRatio    float64             `json:"seasonal_q4_q2_ratio" yaml:"seasonal_q4_q2_ratio"`
	Bundles          []repository.Bundle `json:"top_bundles" yaml:"top_bundles"`
	QueryTimingsMS   map[string]float64  `json:"query_timings_ms" yaml:"query_timings_ms"`
}

// Report is the result of validating a built store.
type Report struct {
	RunID       string                                  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DatasetID   string                                  `json:"dataset_id,omitempty" yaml:"dataset_id,omitempty"`
	ValidatedAt time.Time                               `json:"validated_at" yaml:"validated_at"`
	Passed      bool                                    `json:"passed" yaml:"passed"`
	Checks      []Check                                 `json:"checks" yaml:"checks"`
	Stats       Stats                                   `json:"stats" yaml:"stats"`
	Warnings    []generator.InfeasibleDistributionError `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Lookup returns the named check.
func (r *Report) Lookup(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Failed lists the names of failed checks in report order.
func (r *Report) Failed() []string {
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

// Err returns a *ValidationFailure when any check failed, nil otherwise.
func (r *Report) Err() error {
	if failed := r.Failed(); len(failed) > 0 {
		return &ValidationFailure{Failed: failed}
	}
	return nil
}

// ValidationFailure lists the checks a report failed.
type ValidationFailure struct {
	Failed []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%d validation check(s) failed: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e *ValidationFailure) Is(target error) bool {
	return target == ErrValidationFailed
}
