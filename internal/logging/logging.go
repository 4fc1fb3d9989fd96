// Package logging writes console logs and per-run JSONL event logs.
package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nibzard/taskcal/internal/utils"
)

// Event types recorded in a run log.
const (
	EventRunStarted      = "run_started"
	EventIssuesFetched   = "issues_fetched"
	EventBreakdownOK     = "breakdown_ok"
	EventBreakdownFailed = "breakdown_failed"
	EventTaskScheduled   = "task_scheduled"
	EventTasksDropped    = "tasks_dropped"
	EventWarning         = "warning"
	EventPublished       = "published"
	EventRunFinished     = "run_finished"
)

// Event is one line of a run log.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Issue     int       `json:"issue,omitempty"`
	Task      string    `json:"task,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	// Raw holds unparseable agent output for diagnostics.
	Raw   string     `json:"raw,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Count int        `json:"count,omitempty"`
}

// RunLogger manages the JSONL log file of one run.
type RunLogger struct {
	Dir     string
	RunID   string
	LogPath string

	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewRunLogger creates the per-project log directory and a JSONL file for
// this run.
func NewRunLogger(baseDir, workDir string) (*RunLogger, error) {
	logDir, err := FindLogDir(baseDir, workDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	id := runID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s.jsonl", id))
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &RunLogger{
		Dir:     logDir,
		RunID:   id,
		LogPath: logPath,
		file:    file,
		now:     time.Now,
	}, nil
}

// Record appends one event. A nil RunLogger discards events. Safe for
// concurrent use.
func (r *RunLogger) Record(e Event) error {
	if r == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		now := r.now
		if now == nil {
			now = time.Now
		}
		e.Timestamp = now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}
	return nil
}

// Close closes the log file.
func (r *RunLogger) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadEvents decodes a JSONL run log.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []Event
	dec := json.NewDecoder(f)
	for dec.More() {
		var e Event
		if err := dec.Decode(&e); err != nil {
			return events, fmt.Errorf("decode %s: %w", path, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// FindLogDir returns the log directory for a work directory:
// <baseDir>/<project-slug>-<hash>.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	baseDir = resolveBaseDir(baseDir, resolvedWorkDir)
	projectRoot := resolveProjectRoot(resolvedWorkDir)
	return filepath.Join(baseDir, projectSlug(projectRoot)), nil
}

func resolveBaseDir(baseDir, workDir string) string {
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

func resolveProjectRoot(workDir string) string {
	if workDir == "" {
		return "."
	}
	if _, err := exec.LookPath("git"); err == nil {
		cmd := exec.Command("git", "-C", workDir, "rev-parse", "--show-toplevel")
		if output, err := cmd.Output(); err == nil {
			root := strings.TrimSpace(string(output))
			if root != "" {
				return root
			}
		}
	}
	return workDir
}

func projectSlug(projectRoot string) string {
	slug := utils.Slugify(filepath.Base(projectRoot), "project")
	return fmt.Sprintf("%s-%s", slug, hashPath(projectRoot))
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// LogRun describes one run log file.
type LogRun struct {
	RunID   string
	Path    string
	ModTime time.Time
}

// FindLogRuns lists the run logs in logDir, newest first. A missing
// directory yields no runs.
func FindLogRuns(logDir string) ([]LogRun, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var runs []LogRun
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, LogRun{
			RunID:   strings.TrimSuffix(name, ".jsonl"),
			Path:    filepath.Join(logDir, name),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].ModTime.Equal(runs[j].ModTime) {
			return runs[i].RunID > runs[j].RunID
		}
		return runs[i].ModTime.After(runs[j].ModTime)
	})
	return runs, nil
}

// FindLatestLog returns the newest run log in logDir, or "" when there is none.
func FindLatestLog(logDir string) (string, error) {
	runs, err := FindLogRuns(logDir)
	if err != nil || len(runs) == 0 {
		return "", err
	}
	return runs[0].Path, nil
}

// TailLog copies the last n lines of a log file to w. n <= 0 copies the
// whole file.
func TailLog(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if n > 0 {
		lines := strings.SplitAfter(string(data), "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		if len(lines) > n {
			lines = lines[len(lines)-n:]
		}
		data = []byte(strings.Join(lines, ""))
	}
	_, err = w.Write(data)
	return err
}
