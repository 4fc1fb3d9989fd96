package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultDuration is the duration in hours given to tasks that carry none.
const DefaultDuration = 1.0

// MaxDuration is the largest duration in hours a single task may have,
// roughly forty years of work days.
const MaxDuration = 100000.0

var (
	// ErrInvalidTaskSpec marks a task that cannot be scheduled as given.
	ErrInvalidTaskSpec = errors.New("invalid task spec")

	// ErrCycleDetected marks a dependency cycle inside one batch.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

// Spec is a named unit of work with a duration in hours and the names of the
// tasks it depends on.
type Spec struct {
	Name      string   `json:"task" yaml:"task"`
	Duration  float64  `json:"duration" yaml:"duration"`
	DependsOn []string `json:"depends_on" yaml:"depends_on"`
}

// Clone returns a copy that shares no slices with s.
func (s Spec) Clone() Spec {
	out := s
	if s.DependsOn != nil {
		out.DependsOn = make([]string, len(s.DependsOn))
		copy(out.DependsOn, s.DependsOn)
	}
	return out
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // Location of the offending field, e.g. tasks[2].duration
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap exposes both the underlying error and ErrInvalidTaskSpec.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidTaskSpec, e.Err}
}

func invalidf(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Err: fmt.Errorf(format, args...)}
}

// CycleError reports one dependency cycle, first and last entries equal.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// WarningKind classifies a non-fatal observation about a batch.
type WarningKind string

const (
	WarningDefaultDuration   WarningKind = "default_duration"
	WarningUnknownDependency WarningKind = "unknown_dependency"
	WarningDuplicateName     WarningKind = "duplicate_name"
	WarningCapacityExceeded  WarningKind = "capacity_exceeded"
)

// Warning is a non-fatal observation made while preparing a batch.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Task    string      `json:"task,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Task != "" {
		return fmt.Sprintf("%s (%s): %s", w.Kind, w.Task, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
