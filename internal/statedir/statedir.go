// Package statedir provides constants and utilities for the .taskcal directory structure.
package statedir

import "path/filepath"

const (
	// Dir is the name of the taskcal state directory.
	Dir = ".taskcal"

	// DefaultPromptFile is the breakdown prompt template (inside .taskcal).
	DefaultPromptFile = "breakdown.tmpl"

	// DefaultConfigFile is the config file name (inside .taskcal).
	DefaultConfigFile = "taskcal.toml"
)

// PromptPath returns the full path to the prompt template within a work directory.
func PromptPath(workDir string) string {
	return joinPath(workDir, DefaultPromptFile)
}

// ConfigPath returns the full path to the config file within a work directory.
func ConfigPath(workDir string) string {
	return joinPath(workDir, DefaultConfigFile)
}

// DirPath returns the full path to the .taskcal directory within a work directory.
func DirPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return Dir
	}
	return filepath.Join(workDir, Dir)
}

func joinPath(workDir, file string) string {
	return filepath.Join(DirPath(workDir), file)
}
