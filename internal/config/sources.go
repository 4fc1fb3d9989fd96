package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nibzard/taskcal/internal/calendar"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/statedir"
)

// findProjectConfigFile looks for a config file in dir.
func findProjectConfigFile(dir string) string {
	names := []string{"taskcal.toml", ".taskcal.toml", filepath.Join(statedir.Dir, statedir.DefaultConfigFile)}
	for _, name := range names {
		path := name
		if dir != "" && dir != "." {
			path = filepath.Join(dir, name)
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findUserConfigFile looks for a user-level config file.
// Checks ~/.taskcal/taskcal.toml first, then falls back to OS-specific
// config directories.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, statedir.Dir, statedir.DefaultConfigFile)
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	if cfgDir := osUserConfigDir(); cfgDir != "" {
		userConfigPath := filepath.Join(cfgDir, "taskcal", statedir.DefaultConfigFile)
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	return ""
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return appdata
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux", "openbsd", "freebsd", "netbsd":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.TasksFile = DefaultTasksFile
	cfg.LogDir = DefaultLogDir
	cfg.Timezone = DefaultTimezone
	cfg.MaxTasksPerRun = DefaultMaxTasksPerRun
	cfg.DurationUnit = DefaultDurationUnit
	cfg.Workers = DefaultWorkers
	cfg.Calendar = calendar.DefaultWindows()

	cfg.Issues.State = issues.DefaultState
	cfg.Issues.Limit = issues.DefaultLimit
	cfg.Issues.GHBinary = issues.DefaultBinary

	cfg.Agent.Kind = DefaultAgentKind
	cfg.Agent.TimeoutSeconds = DefaultAgentTimeout

	cfg.Sink.Kind = DefaultSinkKind

	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

// GetConfigFile returns the highest-priority config file that was read.
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}
