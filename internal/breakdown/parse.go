package breakdown

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nibzard/taskcal/internal/tasks"
)

// ErrUpstreamParse marks agent output that is not a usable list of tasks.
var ErrUpstreamParse = errors.New("could not parse task breakdown")

// ParseError keeps the raw agent output next to the reason it was rejected.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstreamParse, e.Err)
}

// Unwrap exposes ErrUpstreamParse and the underlying error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrUpstreamParse, e.Err}
}

// Snippet returns the start of the raw output for log lines.
func (e *ParseError) Snippet() string {
	return safePrefix(e.Raw)
}

var openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*")

// ExtractJSON strips code fences and surrounding whitespace.
func ExtractJSON(s string) string {
	t := strings.TrimSpace(s)

	// Escaped output (e.g. a JSON string literal) is unescaped first.
	if strings.HasPrefix(t, `"`) && (strings.Contains(t, `\n`) || strings.Contains(t, `\"`)) {
		var unescaped string
		if err := json.Unmarshal([]byte(t), &unescaped); err == nil {
			t = strings.TrimSpace(unescaped)
		}
	}

	if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(openingFence.ReplaceAllString(t, ""))
		if i := strings.Index(t, "```"); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}

	// A fenced block after some prose.
	if i := strings.Index(t, "```"); i >= 0 {
		rest := strings.TrimSpace(openingFence.ReplaceAllString(t[i:], ""))
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}

	return t
}

// Parse turns raw agent output into task specs. It accepts a bare array, an
// object with a "tasks" array, fenced blocks, and arrays wrapped in prose.
// Field aliases follow tasks.DecodeRecords.
func Parse(raw string, opts tasks.DecodeOptions) ([]tasks.Spec, error) {
	fail := func(err error) ([]tasks.Spec, error) {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return fail(errors.New("empty output"))
	}

	doc, err := decodeLoose(cleaned)
	if err != nil {
		return fail(err)
	}

	records, err := tasks.ExtractRecords(doc)
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 {
		return fail(errors.New("no tasks in output"))
	}
	if errs := tasks.ValidateRecords(records); len(errs) > 0 {
		return fail(errors.Join(errs...))
	}

	specs, err := tasks.DecodeRecords(records, opts)
	if err != nil {
		return fail(err)
	}

	if res := tasks.Validate(specs, tasks.ValidationOptions{}); !res.Valid {
		return fail(res.Err())
	}
	return specs, nil
}

// decodeLoose decodes the whole string, then falls back to the first "[" to
// last "]" slice, then to the first "{" to last "}" slice.
func decodeLoose(s string) (any, error) {
	doc, err := decodeJSON(s)
	if err == nil {
		return doc, nil
	}

	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if doc, sliceErr := decodeJSON(s[start : end+1]); sliceErr == nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("output is not valid JSON: %w", err)
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return doc, nil
}

// safePrefix returns a safe prefix of a string for logging.
func safePrefix(s string) string {
	const maxLen = 200
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
