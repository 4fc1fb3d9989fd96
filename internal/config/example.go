package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# taskcal configuration file
# Values can be overridden by TASKCAL_* environment variables or CLI flags

# Task file used by schedule, validate, watch and tui (JSON or YAML)
tasks_file = "tasks.json"

# Where "taskcal schedule" writes its output (empty = stdout)
# output_file = "schedule.json"

# Run log directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.taskcal/logs"

# IANA time zone all scheduling happens in
timezone = "UTC"

# Earliest start (RFC 3339); empty means now
# start_time = "2024-01-08T08:00:00Z"

# Reject tasks with a missing or zero duration instead of defaulting to 1h
strict = false

# Tasks scheduled per run; the rest are reported as dropped
max_tasks_per_run = 5

# Unit of bare "duration" values: hours or minutes
duration_unit = "hours"

# Issues broken down concurrently by "taskcal plan"
workers = 2

# Console logging
log_level = "info"
log_format = "text"      # text, json or logfmt
log_timestamps = false
log_caller = false

[calendar]
morning_start = 8
morning_end = 12
afternoon_start = 14
afternoon_end = 17

[issues]
# repo = "owner/name"
state = "open"
limit = 30
# labels = ["bug", "area/*"]
gh_binary = "gh"

[agent]
kind = "claude"          # claude or codex
# binary = "/usr/local/bin/claude"
# model = ""
# args = []
timeout_seconds = 600
# prompt_file = ".taskcal/breakdown.tmpl"

[sink]
kind = "json"            # json, ics or hook
# path = "schedule.ics"
# hook_command = "/path/to/add-event.sh"

`
}
