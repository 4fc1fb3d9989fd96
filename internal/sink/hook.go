package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// HookSink runs an external command once per event. The command receives
//
//	<summary> <start RFC3339> <end RFC3339> <time zone>
//
// as arguments and the event as JSON on stdin.
type HookSink struct {
	Command string
	WorkDir string
	// OnResult, when set, observes every invocation.
	OnResult func(HookResult)
}

// HookResult captures the outcome of a hook invocation.
type HookResult struct {
	Ran      bool
	Command  []string
	ExitCode int
	UID      string
	Output   string
}

// Publish invokes the hook for every event. A failing invocation does not
// stop the remaining ones; all failures are returned together.
func (s *HookSink) Publish(ctx context.Context, events []Event) error {
	var errs []error
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.Invoke(ctx, e)
		if s.OnResult != nil {
			s.OnResult(result)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("event %q: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Invoke runs the hook command for one event.
func (s *HookSink) Invoke(ctx context.Context, e Event) (HookResult, error) {
	if s.Command == "" {
		return HookResult{}, nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return HookResult{}, fmt.Errorf("marshal event: %w", err)
	}

	args := []string{
		e.Summary(),
		e.Start.Format(time.RFC3339),
		e.End.Format(time.RFC3339),
		e.TimeZone,
	}
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(),
		"TASKCAL_EVENT_UID="+e.UID,
		"TASKCAL_EVENT_TASK="+e.Name,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err = cmd.Run()
	result := HookResult{
		Ran:      true,
		Command:  cmd.Args,
		ExitCode: exitCodeFromError(err),
		UID:      e.UID,
		Output:   output.String(),
	}
	if err != nil {
		return result, fmt.Errorf("hook command failed: %w", err)
	}
	return result, nil
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
