package tasks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is the unit a bare "duration" field is read in.
type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
)

// ParseUnit accepts common spellings of hours and minutes.
// An empty string means hours.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "h", "hour", "hours":
		return UnitHours, nil
	case "m", "min", "mins", "minute", "minutes":
		return UnitMinutes, nil
	default:
		return "", fmt.Errorf("unknown duration unit %q (want hours or minutes)", s)
	}
}

// DecodeOptions controls record decoding.
type DecodeOptions struct {
	// DurationUnit applies to the "duration" and "estimate" fields.
	DurationUnit Unit
}

var (
	nameKeys         = []string{"task", "name", "title", "description"}
	hourKeys         = []string{"duration_hours", "hours"}
	minuteKeys       = []string{"duration_minutes", "minutes"}
	unitDurationKeys = []string{"duration", "estimate"}
	dependencyKeys   = []string{"depends_on", "depends", "dependencies", "dependency"}
)

// ExtractRecords finds the list of task records inside a decoded document.
// It accepts a bare array, an object with a "tasks" array (optionally nested
// under "plan"), or a single task object.
func ExtractRecords(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["tasks"].([]any); ok {
			return list, nil
		}
		if plan, ok := v["plan"].(map[string]any); ok {
			if list, ok := plan["tasks"].([]any); ok {
				return list, nil
			}
		}
		for _, key := range nameKeys {
			if _, ok := v[key]; ok {
				return []any{v}, nil
			}
		}
		return nil, invalidf("", "object has no \"tasks\" array")
	case nil:
		return nil, invalidf("", "document is empty")
	default:
		return nil, invalidf("", "expected an array of task records, got %s", typeName(doc))
	}
}

// DecodeRecords converts loosely shaped records into specs. It checks field
// types only; Validate enforces the remaining rules.
func DecodeRecords(records []any, opts DecodeOptions) ([]Spec, error) {
	unit := opts.DurationUnit
	if unit == "" {
		unit = UnitHours
	}

	specs := make([]Spec, len(records))
	rawDeps := make([][]any, len(records))

	for i, raw := range records {
		path := fmt.Sprintf("tasks[%d]", i)
		rec, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidf(path, "expected an object, got %s", typeName(raw))
		}

		name, err := decodeName(rec, path)
		if err != nil {
			return nil, err
		}
		duration, err := decodeDuration(rec, path, unit)
		if err != nil {
			return nil, err
		}
		deps, err := collectDependencies(rec, path)
		if err != nil {
			return nil, err
		}

		specs[i] = Spec{Name: name, Duration: duration}
		rawDeps[i] = deps
	}

	for i, deps := range rawDeps {
		resolved := make([]string, 0, len(deps))
		for j, dep := range deps {
			name, err := resolveDependency(dep, specs)
			if err != nil {
				return nil, &ValidationError{Path: fmt.Sprintf("tasks[%d].depends_on[%d]", i, j), Err: err}
			}
			if name != "" {
				resolved = append(resolved, name)
			}
		}
		specs[i].DependsOn = resolved
	}

	return specs, nil
}

func decodeName(rec map[string]any, path string) (string, error) {
	for _, key := range nameKeys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", invalidf(path+"."+key, "expected a string, got %s", typeName(v))
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", nil
}

func decodeDuration(rec map[string]any, path string, unit Unit) (float64, error) {
	groups := []struct {
		keys    []string
		minutes bool
	}{
		{hourKeys, false},
		{minuteKeys, true},
		{unitDurationKeys, unit == UnitMinutes},
	}

	for _, g := range groups {
		for _, key := range g.keys {
			v, ok := rec[key]
			if !ok || v == nil {
				continue
			}
			hours, err := toHours(v, g.minutes)
			if err != nil {
				return 0, &ValidationError{Path: path + "." + key, Err: err}
			}
			return hours, nil
		}
	}
	return 0, nil
}

// toHours converts a numeric value to hours. Strings with a unit suffix
// ("90m", "1h30m") are parsed as Go durations regardless of minutes.
func toHours(v any, minutes bool) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x.String())
		}
		n = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n = f
			break
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", x)
		}
		return d.Hours(), nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", typeName(v))
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("must be a finite number, got %v", n)
	}
	if minutes {
		return n / 60, nil
	}
	return n, nil
}

func collectDependencies(rec map[string]any, path string) ([]any, error) {
	for _, key := range dependencyKeys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case nil:
			return nil, nil
		case []any:
			return x, nil
		case string:
			// Comma separated lists show up in hand-written YAML.
			parts := strings.Split(x, ",")
			out := make([]any, 0, len(parts))
			for _, p := range parts {
				out = append(out, p)
			}
			return out, nil
		case float64, int, int64, json.Number:
			return []any{x}, nil
		default:
			return nil, invalidf(path+"."+key, "expected a list of task names, got %s", typeName(v))
		}
	}
	return nil, nil
}

// resolveDependency maps a dependency entry to a task name. Integers are
// zero-based indexes into the batch; an index outside it is kept as "#N" so
// it surfaces as an unknown dependency.
func resolveDependency(dep any, specs []Spec) (string, error) {
	var idx int
	switch x := dep.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		if x != math.Trunc(x) {
			return "", fmt.Errorf("dependency index must be an integer, got %v", x)
		}
		idx = int(x)
	case int:
		idx = x
	case int64:
		idx = int(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return "", fmt.Errorf("dependency index must be an integer, got %s", x.String())
		}
		idx = int(n)
	default:
		return "", fmt.Errorf("expected a task name or index, got %s", typeName(dep))
	}

	if idx < 0 || idx >= len(specs) || specs[idx].Name == "" {
		return fmt.Sprintf("#%d", idx), nil
	}
	return specs[idx].Name, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int64, uint64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
