// Package utils holds small string and filesystem helpers shared by the
// config, tasks, logging and breakdown packages.
package utils

import (
	"strconv"
	"strings"
)

// SplitAndTrim splits s on sep and drops blank parts. The result is never nil.
func SplitAndTrim(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pointerUnescaper reverses RFC 6901 escaping in a single pass.
var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// JSONPointerToPath renders a JSON Pointer such as "#/tasks/2/depends" as
// "tasks[2].depends". Numeric segments become indexes.
func JSONPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")

	var b strings.Builder
	for _, seg := range strings.Split(ptr, "/") {
		seg = pointerUnescaper.Replace(seg)
		switch {
		case seg == "":
		case isIndex(seg):
			b.WriteByte('[')
			b.WriteString(seg)
			b.WriteByte(']')
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg)
		}
	}
	return b.String()
}

func isIndex(seg string) bool {
	n, err := strconv.Atoi(seg)
	return err == nil && n >= 0 && strconv.Itoa(n) == seg
}
