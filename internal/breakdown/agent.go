package breakdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nibzard/taskcal/internal/utils"
)

// Kind names an agent CLI.
type Kind string

const (
	KindClaude Kind = "claude"
	KindCodex  Kind = "codex"
)

// DefaultTimeout bounds a single breakdown call.
const DefaultTimeout = 10 * time.Minute

// ErrAgentNotFound indicates the agent binary is missing from PATH.
var ErrAgentNotFound = errors.New("agent binary not found")

// Agent turns a prompt into raw text output.
type Agent interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for an agent.
type Config struct {
	// Binary is the path to the agent binary. Defaults to the kind name.
	Binary string

	// Model is the model to use (optional).
	Model string

	// Args are additional arguments to pass to the binary.
	Args []string

	// Timeout is the maximum duration of one run. Zero means DefaultTimeout;
	// negative disables the timeout.
	Timeout time.Duration

	// WorkDir is the working directory for the agent command.
	WorkDir string
}

// Command is one agent process invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin string
	Dir   string
}

// Runner executes a Command and returns its stdout. Tests substitute it.
type Runner func(ctx context.Context, cmd Command) ([]byte, error)

// ExecRunner runs commands using os/exec.
func ExecRunner(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, c.Name)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, safePrefix(msg))
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// NewAgent creates an agent of the given kind. Kinds other than claude and
// codex run Binary (or the kind name) with the prompt on stdin and read the
// answer from stdout. A nil runner means ExecRunner.
func NewAgent(kind Kind, cfg Config, runner Runner) (Agent, error) {
	kind = Kind(strings.ToLower(strings.TrimSpace(string(kind))))
	if kind == "" {
		return nil, errors.New("agent kind is empty")
	}
	cfg = normalizeConfig(kind, cfg)
	if runner == nil {
		runner = ExecRunner
	}

	base := cliAgent{name: string(kind), cfg: cfg, run: runner}
	switch kind {
	case KindClaude:
		return &claudeAgent{base}, nil
	case KindCodex:
		return &codexAgent{base}, nil
	default:
		return &genericAgent{base}, nil
	}
}

// FindBinary looks the agent binary up in PATH. A binary given as a path is
// checked in place instead.
func FindBinary(kind Kind, binary string) (string, error) {
	name := binary
	if name == "" {
		name = string(kind)
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if err := utils.ValidateExecutable(name); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAgentNotFound, err)
		}
		return name, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrAgentNotFound, name, err)
	}
	return path, nil
}

func normalizeConfig(kind Kind, cfg Config) Config {
	if cfg.Binary == "" {
		cfg.Binary = string(kind)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func ensurePromptTerminator(prompt string) string {
	if strings.HasSuffix(prompt, "\n") {
		return prompt
	}
	return prompt + "\n"
}

// cliAgent holds what every agent kind shares.
type cliAgent struct {
	name string
	cfg  Config
	run  Runner
}

func (a cliAgent) invoke(ctx context.Context, args []string, stdin string) (string, error) {
	ctx, cancel := applyTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	out, err := a.run(ctx, Command{Name: a.cfg.Binary, Args: args, Stdin: stdin, Dir: a.cfg.WorkDir})
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return "", err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timeout after %s", a.name, a.cfg.Timeout)
		}
		return "", fmt.Errorf("%s failed: %w", a.name, err)
	}
	return string(out), nil
}

func (a cliAgent) modelArgs(flag string) []string {
	if a.cfg.Model == "" {
		return nil
	}
	return []string{flag, a.cfg.Model}
}

// claudeAgent runs claude in print mode with plain text output.
type claudeAgent struct {
	cliAgent
}

func (a *claudeAgent) Run(ctx context.Context, prompt string) (string, error) {
	args := []string{"--output-format", "text"}
	args = append(args, a.modelArgs("--model")...)
	args = append(args, a.cfg.Args...)
	args = append(args, "-p", prompt)
	return a.invoke(ctx, args, "")
}

// codexAgent runs codex exec with the prompt on stdin and reads the final
// message from --output-last-message.
type codexAgent struct {
	cliAgent
}

func (a *codexAgent) Run(ctx context.Context, prompt string) (string, error) {
	f, err := os.CreateTemp("", "taskcal-codex-*.txt")
	if err != nil {
		return "", fmt.Errorf("create last message file: %w", err)
	}
	lastMessagePath := f.Name()
	f.Close()
	defer os.Remove(lastMessagePath)

	args := []string{"exec"}
	args = append(args, a.modelArgs("-m")...)
	args = append(args, a.cfg.Args...)
	args = append(args, "--output-last-message", lastMessagePath, "-")

	stdout, err := a.invoke(ctx, args, ensurePromptTerminator(prompt))
	if err != nil {
		return "", err
	}

	if data, err := os.ReadFile(lastMessagePath); err == nil && strings.TrimSpace(string(data)) != "" {
		return string(data), nil
	}
	return stdout, nil
}

// genericAgent pipes the prompt through any command.
type genericAgent struct {
	cliAgent
}

func (a *genericAgent) Run(ctx context.Context, prompt string) (string, error) {
	args := append([]string{}, a.cfg.Args...)
	return a.invoke(ctx, args, ensurePromptTerminator(prompt))
}
