package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nibzard/taskcal/internal/config"
	"github.com/nibzard/taskcal/internal/scheduler"
	"github.com/nibzard/taskcal/internal/sink"
	"github.com/nibzard/taskcal/internal/tasks"
	"github.com/nibzard/taskcal/internal/ui"
)

const formatTable = "table"

func (a *app) scheduleCommand() *cobra.Command {
	var (
		nowFlag string
		format  string
		publish bool
	)
	c := &cobra.Command{
		Use:   "schedule [file]",
		Short: "Place the tasks of a task file on the work calendar",
		Long: `Schedule reads a JSON or YAML task file, orders the tasks by their
dependencies and places at most max_tasks_per_run of them on the work
calendar. Tasks over the limit are reported in the output and not scheduled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := a.clock(nowFlag)
			if err != nil {
				return err
			}
			res, err := a.scheduleFile(a.tasksPath(args), now)
			if err != nil {
				return err
			}
			a.logWarnings(res)

			if publish {
				return a.publish(cmd.Context(), cmd.OutOrStdout(), res, now)
			}
			return a.writeResult(cmd.Context(), cmd.OutOrStdout(), res, format, now)
		},
	}
	c.Flags().StringVar(&nowFlag, "now", "", "Schedule as if the current time were this instant (RFC 3339)")
	c.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or ics")
	c.Flags().BoolVar(&publish, "publish", false, "Publish through the configured sink instead of printing")
	return c
}

func (a *app) validateCommand() *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a task file without scheduling it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(cmd.OutOrStdout(), a.tasksPath(args), verbose)
		},
	}
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the tasks in scheduling order")
	return c
}

// clock returns a fixed clock for a non-empty --now value, or the app clock.
func (a *app) clock(value string) (func() time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return a.now, nil
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	t, err := config.ParseTime(value, loc)
	if err != nil {
		return nil, fmt.Errorf("--now: %w", err)
	}
	return func() time.Time { return t }, nil
}

func (a *app) scheduleFile(path string, now func() time.Time) (*scheduler.Result, error) {
	decode, err := a.cfg.DecodeOptions()
	if err != nil {
		return nil, err
	}
	specs, err := tasks.LoadFile(path, decode)
	if err != nil {
		return nil, err
	}
	sched, err := a.newScheduler(now)
	if err != nil {
		return nil, err
	}
	return sched.Schedule(specs)
}

func (a *app) logWarnings(res *scheduler.Result) {
	for _, w := range res.Warnings {
		a.logger.Warn(w.Message, "kind", w.Kind, "task", w.Task)
	}
}

// writeResult prints res as a table or renders it through a json or ics sink
// aimed at output_file (stdout when unset).
func (a *app) writeResult(ctx context.Context, w io.Writer, res *scheduler.Result, format string, now func() time.Time) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == formatTable {
		return ui.WriteSchedule(w, res)
	}

	kind, err := sink.ParseKind(format)
	if err != nil || kind == sink.KindHook {
		return fmt.Errorf("unknown format %q (want table, json or ics)", format)
	}
	cal, err := a.cfg.NewCalendar()
	if err != nil {
		return err
	}
	out, err := sink.New(sink.Options{
		Kind:     kind,
		Path:     a.cfg.OutputFile,
		Calendar: cal,
		Stdout:   w,
		Now:      now,
	})
	if err != nil {
		return err
	}
	return out.Publish(ctx, sink.NewEvents(res.Tasks, nil))
}

// publish sends res to the configured sink.
func (a *app) publish(ctx context.Context, w io.Writer, res *scheduler.Result, now func() time.Time) error {
	out, err := a.newSink(w, now)
	if err != nil {
		return err
	}
	events := sink.NewEvents(res.Tasks, nil)
	if err := out.Publish(ctx, events); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	a.logger.Info("published events", "sink", a.cfg.Sink.Kind, "count", len(events))
	return nil
}

func (a *app) newSink(w io.Writer, now func() time.Time) (sink.Sink, error) {
	cal, err := a.cfg.NewCalendar()
	if err != nil {
		return nil, err
	}
	return sink.New(sink.Options{
		Kind:        sink.Kind(a.cfg.Sink.Kind),
		Path:        a.cfg.Sink.Path,
		HookCommand: a.cfg.Sink.HookCommand,
		WorkDir:     a.cfg.ProjectRoot,
		Calendar:    cal,
		Stdout:      w,
		Now:         now,
	})
}

func (a *app) validate(w io.Writer, path string, verbose bool) error {
	fmt.Fprintf(w, "Task file: %s\n", path)

	decode, err := a.cfg.DecodeOptions()
	if err != nil {
		return err
	}
	specs, err := tasks.LoadFile(path, decode)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
		return fmt.Errorf("task file is invalid")
	}

	result := tasks.Validate(specs, tasks.ValidationOptions{Strict: a.cfg.Strict})
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  ⚠️  %s\n", warning)
	}
	if !result.Valid {
		fmt.Fprintln(w, "  ❌ Validation failed:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "     - %v\n", e)
		}
		return fmt.Errorf("task file is invalid")
	}

	ordered, err := tasks.Order(result.Tasks)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
		return fmt.Errorf("task file is invalid")
	}

	fmt.Fprintf(w, "  ✅ Valid: %d task(s)\n", len(ordered))
	limit := a.cfg.MaxTasksPerRun
	if limit == 0 {
		limit = scheduler.DefaultMaxTasksPerRun
	}
	if len(ordered) > limit {
		fmt.Fprintf(w, "  ⚠️  Only the first %d will be scheduled per run\n", limit)
	}
	if verbose {
		for i, t := range ordered {
			line := fmt.Sprintf("    %d. %s (%gh)", i+1, t.Name, t.Duration)
			if len(t.DependsOn) > 0 {
				line += " after " + strings.Join(t.DependsOn, ", ")
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
