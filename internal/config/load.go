package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.taskcal/taskcal.toml or OS-specific config dir)
// 3. Project config file (taskcal.toml or .taskcal.toml in current directory)
// 4. Environment variables
// 5. CLI flags that were explicitly set on fs (fs may be nil)
func Load(fs *pflag.FlagSet) (*Config, error) {
	cws, err := LoadDir(".", fs)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *pflag.FlagSet) (*ConfigWithSources, error) {
	return LoadDir(".", fs)
}

// LoadDir is LoadWithSources with the project config searched in dir.
func LoadDir(dir string, fs *pflag.FlagSet) (*ConfigWithSources, error) {
	cfg := &Config{}
	sources := make(map[string]ConfigSource)
	var files []string

	setDefaults(cfg)
	for _, s := range settings {
		sources[s.key] = SourceDefault
	}

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
		files = append(files, path)
	}

	if path := findProjectConfigFile(dir); path != "" {
		if err := loadConfigFile(cfg, path, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
		files = append(files, path)
	}

	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := applyFlags(cfg, fs, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg, dir); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{Config: cfg, Sources: sources, Files: files}, nil
}

// loadConfigFile decodes a TOML file over cfg. Keys absent from the file keep
// their current values; keys present are attributed to source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	for _, s := range settings {
		if md.IsDefined(strings.Split(s.key, ".")...) {
			sources[s.key] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and resolves paths.
func finalizeConfig(cfg *Config, dir string) error {
	cfg.LogDir = expandPath(cfg.LogDir)

	if cfg.ProjectRoot == "" {
		root := dir
		if root == "" {
			root = "."
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = abs
	}

	cfg.TasksFile = resolvePath(cfg.ProjectRoot, cfg.TasksFile)
	cfg.OutputFile = resolvePath(cfg.ProjectRoot, cfg.OutputFile)
	cfg.Sink.Path = resolvePath(cfg.ProjectRoot, cfg.Sink.Path)
	cfg.Agent.PromptFile = resolvePath(cfg.ProjectRoot, cfg.Agent.PromptFile)
	return nil
}

// resolvePath makes p absolute relative to root. Empty and "-" (stdout) are
// returned unchanged.
func resolvePath(root, p string) string {
	if p == "" || p == "-" {
		return p
	}
	p = expandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// WriteExample writes ExampleConfig to path unless the file already exists.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(ExampleConfig()), 0644)
}
