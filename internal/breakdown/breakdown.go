// Package breakdown asks an agent CLI to split an issue into task specs.
package breakdown

import (
	"context"
	"errors"
	"time"

	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/tasks"
)

// Result is the outcome of breaking down one issue.
type Result struct {
	Issue  issues.Issue
	Prompt string
	Raw    string
	Tasks  []tasks.Spec
}

// Engine renders a prompt per issue, runs the agent and parses its answer.
type Engine struct {
	agent    Agent
	renderer *Renderer
	repo     string
	decode   tasks.DecodeOptions
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer replaces the default prompt.
func WithRenderer(r *Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithRepo names the repository in the prompt.
func WithRepo(repo string) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithDecodeOptions controls how task records are read.
func WithDecodeOptions(opts tasks.DecodeOptions) Option {
	return func(e *Engine) {
		e.decode = opts
	}
}

// WithClock sets the clock used for the prompt timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine around agent.
func NewEngine(agent Agent, opts ...Option) (*Engine, error) {
	if agent == nil {
		return nil, errors.New("breakdown engine requires an agent")
	}
	renderer, err := NewRenderer("")
	if err != nil {
		return nil, err
	}
	e := &Engine{agent: agent, renderer: renderer, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Breakdown returns the task specs for issue. When the agent answered but the
// answer could not be parsed, the returned Result still carries Raw and the
// error is a *ParseError.
func (e *Engine) Breakdown(ctx context.Context, issue issues.Issue) (*Result, error) {
	prompt, err := e.renderer.Render(NewPromptData(e.repo, issue, e.now()))
	if err != nil {
		return nil, err
	}

	raw, err := e.agent.Run(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &Result{Issue: issue, Prompt: prompt, Raw: raw}
	specs, err := Parse(raw, e.decode)
	if err != nil {
		return result, err
	}
	result.Tasks = specs
	return result, nil
}
