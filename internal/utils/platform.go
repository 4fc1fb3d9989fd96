package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// WindowsExecutableExtensions returns a map of lowercase Windows executable
// extensions (with leading dot) to true, parsed from the PATHEXT environment
// variable. Returns a default set if PATHEXT is unset.
func WindowsExecutableExtensions() map[string]bool {
	exts := map[string]bool{}
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		pathext = ".COM;.EXE;.BAT;.CMD"
	}
	for _, ext := range strings.Split(pathext, ";") {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	return exts
}

// IsWindowsExecutable returns true if the given file path has a Windows
// executable extension according to the PATHEXT environment variable.
func IsWindowsExecutable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return WindowsExecutableExtensions()[ext]
}

// ValidateExecutable checks that path exists, is a regular file and is
// executable. On Windows only the PATHEXT extension is checked.
func ValidateExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("binary not found: %s", path)
		}
		return fmt.Errorf("stat binary: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("binary path is a directory: %s", path)
	}
	if runtime.GOOS == "windows" {
		if !IsWindowsExecutable(path) {
			return fmt.Errorf("binary is not executable: %s", path)
		}
		return nil
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("binary is not executable: %s", path)
	}
	return nil
}
