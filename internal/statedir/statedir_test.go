package statedir

import (
	"path/filepath"
	"testing"
)

func TestPaths(t *testing.T) {
	tests := []struct {
		name    string
		workDir string
		fn      func(string) string
		want    string
	}{
		{"dir current", ".", DirPath, ".taskcal"},
		{"dir empty", "", DirPath, ".taskcal"},
		{"dir nested", "proj", DirPath, filepath.Join("proj", ".taskcal")},
		{"prompt", "proj", PromptPath, filepath.Join("proj", ".taskcal", "breakdown.tmpl")},
		{"config", ".", ConfigPath, filepath.Join(".taskcal", "taskcal.toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.workDir); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
