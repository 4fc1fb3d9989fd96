package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// windowsVar matches %NAME% references.
var windowsVar = regexp.MustCompile(`%([^%]+)%`)

// expandPath resolves $VAR references (and %VAR% on Windows) and a leading ~
// in p. Unknown %VAR% references are kept as written.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if runtime.GOOS == "windows" {
		p = windowsVar.ReplaceAllStringFunc(p, func(ref string) string {
			if v, ok := os.LookupEnv(strings.Trim(ref, "%")); ok {
				return v
			}
			return ref
		})
	}

	rest, ok := strings.CutPrefix(p, "~")
	if !ok {
		return p
	}
	if rest != "" && rest[0] != '/' && !(runtime.GOOS == "windows" && rest[0] == '\\') {
		// ~user is not supported.
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if rest == "" {
		return home
	}
	return filepath.Join(home, rest[1:])
}
