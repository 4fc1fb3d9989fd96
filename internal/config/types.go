package config

import (
	"github.com/nibzard/taskcal/internal/calendar"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultTasksFile      = "tasks.json"
	DefaultLogDir         = "~/.taskcal/logs"
	DefaultTimezone       = "UTC"
	DefaultMaxTasksPerRun = 5
	DefaultDurationUnit   = "hours"
	DefaultWorkers        = 2
	DefaultAgentKind      = "claude"
	DefaultAgentTimeout   = 600
	DefaultSinkKind       = "json"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds the full configuration for taskcal.
type Config struct {
	// Paths
	TasksFile  string `toml:"tasks_file"`
	OutputFile string `toml:"output_file"`
	LogDir     string `toml:"log_dir"`

	// Scheduling
	Timezone       string `toml:"timezone"`
	StartTime      string `toml:"start_time"` // RFC 3339; empty means now
	Strict         bool   `toml:"strict"`
	MaxTasksPerRun int    `toml:"max_tasks_per_run"`
	DurationUnit   string `toml:"duration_unit"`

	// Concurrent issue breakdowns in plan
	Workers int `toml:"workers"`

	Calendar calendar.Windows `toml:"calendar"`
	Issues   IssuesConfig     `toml:"issues"`
	Agent    AgentConfig      `toml:"agent"`
	Sink     SinkConfig       `toml:"sink"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// IssuesConfig selects the GitHub issues planned by `taskcal plan`.
type IssuesConfig struct {
	Repo     string   `toml:"repo"`
	State    string   `toml:"state"`
	Limit    int      `toml:"limit"`
	Labels   []string `toml:"labels"` // glob patterns
	GHBinary string   `toml:"gh_binary"`
}

// AgentConfig configures the CLI agent that breaks issues into tasks.
type AgentConfig struct {
	Kind           string   `toml:"kind"` // claude or codex
	Binary         string   `toml:"binary"`
	Model          string   `toml:"model"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	PromptFile     string   `toml:"prompt_file"`
}

// SinkConfig selects where scheduled tasks are published.
type SinkConfig struct {
	Kind        string `toml:"kind"` // json, ics or hook
	Path        string `toml:"path"`
	HookCommand string `toml:"hook_command"`
}
