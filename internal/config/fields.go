package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nibzard/taskcal/internal/utils"
)

// setting binds one configuration field to its TOML key, environment
// variable and CLI flag. Exactly one of the accessors is set.
type setting struct {
	key   string // dotted TOML key, also the source-tracking name
	env   string
	flag  string
	usage string

	str  func(*Config) *string
	num  func(*Config) *int
	bit  func(*Config) *bool
	list func(*Config) *[]string
}

var settings = []setting{
	{key: "tasks_file", env: "TASKCAL_TASKS", flag: "tasks", usage: "Path to the task file (JSON or YAML)",
		str: func(c *Config) *string { return &c.TasksFile }},
	{key: "output_file", env: "TASKCAL_OUTPUT", flag: "output", usage: "Write schedule output to this file (default stdout)",
		str: func(c *Config) *string { return &c.OutputFile }},
	{key: "log_dir", env: "TASKCAL_LOG_DIR", flag: "log-dir", usage: "Run log directory",
		str: func(c *Config) *string { return &c.LogDir }},
	{key: "timezone", env: "TASKCAL_TIMEZONE", flag: "timezone", usage: "IANA time zone for the work calendar",
		str: func(c *Config) *string { return &c.Timezone }},
	{key: "start_time", env: "TASKCAL_START", flag: "start", usage: "Earliest start (RFC 3339); default now",
		str: func(c *Config) *string { return &c.StartTime }},
	{key: "strict", env: "TASKCAL_STRICT", flag: "strict", usage: "Reject tasks without a positive duration",
		bit: func(c *Config) *bool { return &c.Strict }},
	{key: "max_tasks_per_run", env: "TASKCAL_MAX_TASKS", flag: "max", usage: "Maximum tasks scheduled per run",
		num: func(c *Config) *int { return &c.MaxTasksPerRun }},
	{key: "duration_unit", env: "TASKCAL_DURATION_UNIT", flag: "duration-unit", usage: "Unit of bare duration values (hours or minutes)",
		str: func(c *Config) *string { return &c.DurationUnit }},
	{key: "workers", env: "TASKCAL_WORKERS", flag: "workers", usage: "Concurrent issue breakdowns",
		num: func(c *Config) *int { return &c.Workers }},

	{key: "calendar.morning_start", env: "TASKCAL_MORNING_START",
		num: func(c *Config) *int { return &c.Calendar.MorningStart }},
	{key: "calendar.morning_end", env: "TASKCAL_MORNING_END",
		num: func(c *Config) *int { return &c.Calendar.MorningEnd }},
	{key: "calendar.afternoon_start", env: "TASKCAL_AFTERNOON_START",
		num: func(c *Config) *int { return &c.Calendar.AfternoonStart }},
	{key: "calendar.afternoon_end", env: "TASKCAL_AFTERNOON_END",
		num: func(c *Config) *int { return &c.Calendar.AfternoonEnd }},

	{key: "issues.repo", env: "TASKCAL_REPO", flag: "repo", usage: "GitHub repository (owner/name)",
		str: func(c *Config) *string { return &c.Issues.Repo }},
	{key: "issues.state", env: "TASKCAL_ISSUE_STATE", flag: "state", usage: "Issue state: open, closed or all",
		str: func(c *Config) *string { return &c.Issues.State }},
	{key: "issues.limit", env: "TASKCAL_ISSUE_LIMIT", flag: "limit", usage: "Maximum issues fetched",
		num: func(c *Config) *int { return &c.Issues.Limit }},
	{key: "issues.labels", env: "TASKCAL_LABELS", flag: "label", usage: "Label glob filter (repeatable)",
		list: func(c *Config) *[]string { return &c.Issues.Labels }},
	{key: "issues.gh_binary", env: "TASKCAL_GH_BINARY",
		str: func(c *Config) *string { return &c.Issues.GHBinary }},

	{key: "agent.kind", env: "TASKCAL_AGENT", flag: "agent", usage: "Breakdown agent: claude or codex",
		str: func(c *Config) *string { return &c.Agent.Kind }},
	{key: "agent.binary", env: "TASKCAL_AGENT_BINARY", flag: "agent-binary", usage: "Agent binary path",
		str: func(c *Config) *string { return &c.Agent.Binary }},
	{key: "agent.model", env: "TASKCAL_AGENT_MODEL", flag: "model", usage: "Agent model",
		str: func(c *Config) *string { return &c.Agent.Model }},
	{key: "agent.args", env: "TASKCAL_AGENT_ARGS",
		list: func(c *Config) *[]string { return &c.Agent.Args }},
	{key: "agent.timeout_seconds", env: "TASKCAL_AGENT_TIMEOUT",
		num: func(c *Config) *int { return &c.Agent.TimeoutSeconds }},
	{key: "agent.prompt_file", env: "TASKCAL_PROMPT_FILE", flag: "prompt-file", usage: "Breakdown prompt template",
		str: func(c *Config) *string { return &c.Agent.PromptFile }},

	{key: "sink.kind", env: "TASKCAL_SINK", flag: "sink", usage: "Publish sink: json, ics or hook",
		str: func(c *Config) *string { return &c.Sink.Kind }},
	{key: "sink.path", env: "TASKCAL_SINK_PATH", flag: "sink-path", usage: "Sink output file",
		str: func(c *Config) *string { return &c.Sink.Path }},
	{key: "sink.hook_command", env: "TASKCAL_HOOK", flag: "hook", usage: "Hook command run once per event",
		str: func(c *Config) *string { return &c.Sink.HookCommand }},

	{key: "log_level", env: "TASKCAL_LOG_LEVEL", flag: "log-level", usage: "Console log level",
		str: func(c *Config) *string { return &c.LogLevel }},
	{key: "log_format", env: "TASKCAL_LOG_FORMAT", flag: "log-format", usage: "Console log format: text, json or logfmt",
		str: func(c *Config) *string { return &c.LogFormat }},
	{key: "log_timestamps", env: "TASKCAL_LOG_TIMESTAMPS",
		bit: func(c *Config) *bool { return &c.LogTimestamps }},
	{key: "log_caller", env: "TASKCAL_LOG_CALLER",
		bit: func(c *Config) *bool { return &c.LogCaller }},
}

// set parses v into the field bound by s.
func (s setting) set(cfg *Config, v string) error {
	switch {
	case s.str != nil:
		*s.str(cfg) = v
	case s.num != nil:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", s.key, v)
		}
		*s.num(cfg) = n
	case s.bit != nil:
		*s.bit(cfg) = boolFromString(v)
	case s.list != nil:
		*s.list(cfg) = utils.SplitAndTrim(v, ",")
	}
	return nil
}

// Fields returns the tracked configuration keys in display order.
func Fields() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	return keys
}

// Value returns the current value of a tracked key formatted for display.
func (c *Config) Value(key string) (string, bool) {
	for _, s := range settings {
		if s.key != key {
			continue
		}
		switch {
		case s.str != nil:
			return *s.str(c), true
		case s.num != nil:
			return strconv.Itoa(*s.num(c)), true
		case s.bit != nil:
			return strconv.FormatBool(*s.bit(c)), true
		case s.list != nil:
			return strings.Join(*s.list(c), ","), true
		}
	}
	return "", false
}

func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
