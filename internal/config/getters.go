package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/calendar"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/sink"
	"github.com/nibzard/taskcal/internal/tasks"
)

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewCalendar builds the work calendar in the configured zone.
func (c *Config) NewCalendar() (*calendar.Calendar, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return calendar.New(c.Calendar, loc)
}

// Start parses start_time. The boolean is false when no start is configured.
func (c *Config) Start() (time.Time, bool, error) {
	s := strings.TrimSpace(c.StartTime)
	if s == "" {
		return time.Time{}, false, nil
	}
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := ParseTime(s, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("start_time: %w", err)
	}
	return t, true, nil
}

// ParseTime accepts RFC 3339 or a zone-less "2006-01-02T15:04" / "2006-01-02 15:04"
// interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339)", s)
}

// DecodeOptions returns the task record decoding options.
func (c *Config) DecodeOptions() (tasks.DecodeOptions, error) {
	unit, err := tasks.ParseUnit(c.DurationUnit)
	if err != nil {
		return tasks.DecodeOptions{}, err
	}
	return tasks.DecodeOptions{DurationUnit: unit}, nil
}

// IssueOptions returns the issue source options.
func (c *Config) IssueOptions() issues.Options {
	return issues.Options{
		Repo:     c.Issues.Repo,
		State:    c.Issues.State,
		Limit:    c.Issues.Limit,
		Labels:   c.Issues.Labels,
		GHBinary: c.Issues.GHBinary,
	}
}

// AgentTimeout returns the per-issue agent timeout. Zero or negative
// configured seconds fall back to breakdown.DefaultTimeout.
func (c *Config) AgentTimeout() time.Duration {
	if c.Agent.TimeoutSeconds <= 0 {
		return breakdown.DefaultTimeout
	}
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

// AgentKind returns the breakdown agent kind.
func (c *Config) AgentKind() breakdown.Kind {
	kind := strings.ToLower(strings.TrimSpace(c.Agent.Kind))
	if kind == "" {
		kind = DefaultAgentKind
	}
	return breakdown.Kind(kind)
}

// AgentSettings returns the breakdown agent settings.
func (c *Config) AgentSettings() breakdown.Config {
	return breakdown.Config{
		Binary:  c.Agent.Binary,
		Model:   c.Agent.Model,
		Args:    c.Agent.Args,
		Timeout: c.AgentTimeout(),
		WorkDir: c.ProjectRoot,
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Calendar.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("calendar: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Start(); err != nil {
		errs = append(errs, err)
	}
	if _, err := tasks.ParseUnit(c.DurationUnit); err != nil {
		errs = append(errs, fmt.Errorf("duration_unit: %w", err))
	}
	if c.MaxTasksPerRun < 0 {
		errs = append(errs, fmt.Errorf("max_tasks_per_run must not be negative (got %d)", c.MaxTasksPerRun))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1 (got %d)", c.Workers))
	}
	switch c.Issues.State {
	case "", "open", "closed", "all":
	default:
		errs = append(errs, fmt.Errorf("issues.state must be open, closed or all (got %q)", c.Issues.State))
	}
	if c.Issues.Limit < 0 {
		errs = append(errs, fmt.Errorf("issues.limit must not be negative (got %d)", c.Issues.Limit))
	}
	kind, err := sink.ParseKind(c.Sink.Kind)
	if err != nil {
		errs = append(errs, fmt.Errorf("sink.kind: %w", err))
	} else if kind == sink.KindHook && strings.TrimSpace(c.Sink.HookCommand) == "" {
		errs = append(errs, errors.New("sink.hook_command is required for the hook sink"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text, json or logfmt (got %q)", c.LogFormat))
	}
	return errors.Join(errs...)
}
