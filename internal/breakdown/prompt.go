package breakdown

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/nibzard/taskcal/internal/issues"
)

// DefaultPrompt asks for a bare JSON array of task records.
const DefaultPrompt = `You break GitHub issues down into small, actionable engineering tasks.

Repository: {{if .Repo}}{{.Repo}}{{else}}(current){{end}}
Issue #{{.Issue.Number}}: {{.Issue.Title}}
{{- if .Issue.Labels}}
Labels: {{join .Issue.Labels ", "}}
{{- end}}

{{if .Issue.Body}}{{.Issue.Body}}{{else}}(no description){{end}}

Return ONLY a JSON array, no prose and no code fences. Each element must be:
  {"task": "<short imperative name, unique in this list>",
   "duration_hours": <estimated hours, a positive number>,
   "depends_on": ["<names of tasks in this list that must finish first>"]}

Keep each task between {{.MinHours}} and {{.MaxHours}} hours of focused work.
Current time: {{.Now}}
`

// PromptData holds prompt template variables.
type PromptData struct {
	Repo     string
	Issue    issues.Issue
	MinHours float64
	MaxHours float64
	Now      string
}

// NewPromptData builds prompt data with a UTC timestamp formatted in RFC3339.
func NewPromptData(repo string, issue issues.Issue, now time.Time) PromptData {
	return PromptData{
		Repo:     repo,
		Issue:    issue,
		MinHours: 0.5,
		MaxHours: 4,
		Now:      now.UTC().Format(time.RFC3339),
	}
}

// Renderer renders the breakdown prompt with strict missing-key behavior.
type Renderer struct {
	name string
	tmpl *template.Template
}

// NewRenderer parses text as the prompt template. Empty text means
// DefaultPrompt.
func NewRenderer(text string) (*Renderer, error) {
	name := "breakdown"
	if strings.TrimSpace(text) == "" {
		text = DefaultPrompt
	}
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	return &Renderer{name: name, tmpl: tmpl}, nil
}

// LoadRenderer reads a prompt template from path. An empty path means
// DefaultPrompt.
func LoadRenderer(path string) (*Renderer, error) {
	if path == "" {
		return NewRenderer("")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt %q: %w", path, err)
	}
	return NewRenderer(string(data))
}

// Render executes the template.
func (r *Renderer) Render(data PromptData) (string, error) {
	if r == nil || r.tmpl == nil {
		return "", errors.New("prompt renderer is not initialized")
	}
	if strings.TrimSpace(data.Issue.Title) == "" {
		return "", fmt.Errorf("prompt %q requires Issue.Title", r.name)
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", r.name, err)
	}
	return buf.String(), nil
}
