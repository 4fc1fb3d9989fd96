// Package issues lists GitHub issues through the gh CLI.
package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

const (
	DefaultState  = "open"
	DefaultLimit  = 30
	DefaultBinary = "gh"
)

var (
	// ErrGHNotInstalled indicates that the gh CLI tool is not installed or not in PATH.
	ErrGHNotInstalled = errors.New("gh CLI is not installed or not in PATH")

	// ErrGHAuthRequired indicates that gh CLI requires authentication.
	ErrGHAuthRequired = errors.New("gh CLI requires authentication (run 'gh auth login')")

	// ErrRepoNotFound indicates the repository does not exist or is not accessible.
	ErrRepoNotFound = errors.New("repository not found or not accessible")
)

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Issue is an open unit of work fetched from GitHub.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	URL    string   `json:"url"`
	Labels []string `json:"labels"`
}

// Text returns the title and body as one prompt-ready block.
func (i Issue) Text() string {
	body := strings.TrimSpace(i.Body)
	if body == "" {
		return i.Title
	}
	return i.Title + "\n\n" + body
}

// labelJSON is used to unmarshal the nested label objects from gh CLI JSON output.
type labelJSON struct {
	Name string `json:"name"`
}

// ghIssueResponse is one element of gh issue list --json output.
type ghIssueResponse struct {
	Number int         `json:"number"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
	URL    string      `json:"url"`
	Labels []labelJSON `json:"labels"`
}

// CommandExecutor runs a command and returns its stdout, or its stderr when
// the command fails. Tests substitute it.
type CommandExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommand runs commands using os/exec.
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// Options selects which issues a Source lists.
type Options struct {
	// Repo is owner/name. Empty lets gh infer it from the working directory.
	Repo  string
	State string
	Limit int
	// Labels are glob patterns; an issue is kept when any label matches any
	// pattern. No patterns keeps every issue.
	Labels   []string
	GHBinary string
}

// Source lists issues with the gh CLI.
type Source struct {
	opts     Options
	filters  []glob.Glob
	executor CommandExecutor
}

// NewSource validates opts and compiles the label patterns. A nil executor
// means ExecCommand.
func NewSource(opts Options, executor CommandExecutor) (*Source, error) {
	opts.Repo = strings.TrimSpace(opts.Repo)
	if opts.Repo != "" && !repoPattern.MatchString(opts.Repo) {
		return nil, fmt.Errorf("invalid repository %q (want owner/name)", opts.Repo)
	}
	switch opts.State {
	case "":
		opts.State = DefaultState
	case "open", "closed", "all":
	default:
		return nil, fmt.Errorf("invalid issue state %q (want open, closed or all)", opts.State)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("issue limit must not be negative, got %d", opts.Limit)
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	if opts.GHBinary == "" {
		opts.GHBinary = DefaultBinary
	}
	if executor == nil {
		executor = ExecCommand
	}

	filters := make([]glob.Glob, 0, len(opts.Labels))
	for _, pattern := range opts.Labels {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid label pattern %q: %w", pattern, err)
		}
		filters = append(filters, g)
	}

	return &Source{opts: opts, filters: filters, executor: executor}, nil
}

// Args returns the gh arguments List runs.
func (s *Source) Args() []string {
	args := []string{"issue", "list", "--state", s.opts.State, "--limit", strconv.Itoa(s.opts.Limit),
		"--json", "number,title,body,labels,url"}
	if s.opts.Repo != "" {
		args = append(args, "--repo", s.opts.Repo)
	}
	return args
}

// List returns matching issues, oldest first. gh issue list never returns
// pull requests.
func (s *Source) List(ctx context.Context) ([]Issue, error) {
	output, err := s.executor(ctx, s.opts.GHBinary, s.Args()...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classifyGHError(err, output, s.opts.Repo)
	}

	var response []ghIssueResponse
	if err := json.Unmarshal(output, &response); err != nil {
		return nil, fmt.Errorf("failed to parse gh output: %w", err)
	}

	out := make([]Issue, 0, len(response))
	for _, r := range response {
		labels := make([]string, len(r.Labels))
		for i, label := range r.Labels {
			labels[i] = label.Name
		}
		issue := Issue{Number: r.Number, Title: r.Title, Body: r.Body, URL: r.URL, Labels: labels}
		if s.matches(issue) {
			out = append(out, issue)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Source) matches(issue Issue) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, label := range issue.Labels {
		for _, g := range s.filters {
			if g.Match(label) {
				return true
			}
		}
	}
	return false
}

// classifyGHError analyzes the error and output from a gh command
// and returns a more specific error type when possible.
func classifyGHError(err error, output []byte, repo string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return ErrGHNotInstalled
	}

	outStr := strings.ToLower(string(output))
	switch {
	case strings.Contains(outStr, "not logged in") ||
		strings.Contains(outStr, "authentication required") ||
		strings.Contains(outStr, "gh auth login"):
		return ErrGHAuthRequired

	case strings.Contains(outStr, "could not resolve to a repository") ||
		strings.Contains(outStr, "repository not found"):
		if repo != "" {
			return fmt.Errorf("%w: %s", ErrRepoNotFound, repo)
		}
		return ErrRepoNotFound
	}

	return fmt.Errorf("gh command failed: %w\n%s", err, strings.TrimSpace(string(output)))
}
