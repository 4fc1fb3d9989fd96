package tasks

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ValidationOptions controls validation behavior.
type ValidationOptions struct {
	// Strict rejects missing or zero durations instead of defaulting them.
	Strict bool
	// DefaultDuration replaces missing or zero durations in lenient mode.
	// Zero means DefaultDuration.
	DefaultDuration float64
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []error
	Warnings []Warning
	// Tasks holds the normalized copies of the input, in input order.
	// It is only meaningful when Valid is true.
	Tasks []Spec
}

// Err joins all validation errors, or returns nil for a valid batch.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Validate checks every spec and normalizes names, durations and dependency
// lists. Dependencies on names outside the batch and repeated names are
// reported as warnings; they never invalidate the batch.
func Validate(specs []Spec, opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]Warning, 0),
		Tasks:    make([]Spec, 0, len(specs)),
	}

	fallback := opts.DefaultDuration
	if fallback <= 0 || math.IsNaN(fallback) || math.IsInf(fallback, 0) {
		fallback = DefaultDuration
	}

	for i, spec := range specs {
		path := fmt.Sprintf("tasks[%d]", i)
		normalized, warning, err := normalizeSpec(spec, path, opts.Strict, fallback)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
			continue
		}
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		}
		result.Tasks = append(result.Tasks, normalized)
	}

	if !result.Valid {
		return result
	}

	result.Warnings = append(result.Warnings, duplicateWarnings(result.Tasks)...)
	result.Warnings = append(result.Warnings, unknownDependencyWarnings(result.Tasks)...)
	return result
}

func normalizeSpec(spec Spec, path string, strict bool, fallback float64) (Spec, *Warning, error) {
	out := Spec{Name: strings.TrimSpace(spec.Name), Duration: spec.Duration}
	if out.Name == "" {
		return Spec{}, nil, invalidf(path+".task", "missing required field")
	}

	var warning *Warning
	switch {
	case math.IsNaN(out.Duration) || math.IsInf(out.Duration, 0):
		return Spec{}, nil, invalidf(path+".duration", "must be a finite number of hours, got %v", out.Duration)
	case out.Duration < 0:
		return Spec{}, nil, invalidf(path+".duration", "must not be negative, got %v", out.Duration)
	case out.Duration > MaxDuration:
		return Spec{}, nil, invalidf(path+".duration", "must not exceed %g hours, got %g", MaxDuration, out.Duration)
	case out.Duration == 0:
		if strict {
			return Spec{}, nil, invalidf(path+".duration", "missing or zero duration for task %q", out.Name)
		}
		out.Duration = fallback
		warning = &Warning{
			Kind:    WarningDefaultDuration,
			Task:    out.Name,
			Message: fmt.Sprintf("no duration given, using %gh", fallback),
		}
	}

	out.DependsOn = make([]string, 0, len(spec.DependsOn))
	for _, dep := range spec.DependsOn {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		out.DependsOn = append(out.DependsOn, dep)
	}

	return out, warning, nil
}

func duplicateWarnings(specs []Spec) []Warning {
	counts := make(map[string]int, len(specs))
	for _, s := range specs {
		counts[s.Name]++
	}

	var warnings []Warning
	reported := make(map[string]bool)
	for _, s := range specs {
		n := counts[s.Name]
		if n < 2 || reported[s.Name] {
			continue
		}
		reported[s.Name] = true
		warnings = append(warnings, Warning{
			Kind:    WarningDuplicateName,
			Task:    s.Name,
			Message: fmt.Sprintf("defined %d times; the last definition wins", n),
		})
	}
	return warnings
}

func unknownDependencyWarnings(specs []Spec) []Warning {
	names := make(map[string]bool, len(specs))
	for _, s := range specs {
		names[s.Name] = true
	}

	var warnings []Warning
	for _, s := range specs {
		for _, dep := range s.DependsOn {
			if names[dep] {
				continue
			}
			warnings = append(warnings, Warning{
				Kind:    WarningUnknownDependency,
				Task:    s.Name,
				Message: fmt.Sprintf("dependency %q is not part of this batch and is ignored", dep),
			})
		}
	}
	return warnings
}
