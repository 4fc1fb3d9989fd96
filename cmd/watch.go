package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nibzard/taskcal/internal/scheduler"
	"github.com/nibzard/taskcal/internal/ui"
	"github.com/nibzard/taskcal/internal/watch"
)

func (a *app) watchCommand() *cobra.Command {
	var (
		format   string
		publish  bool
		debounce time.Duration
	)
	c := &cobra.Command{
		Use:   "watch [file]",
		Short: "Reschedule whenever the task file changes",
		Long: `Watch schedules the task file once, then again after every save.
Errors in the file are logged and the watch keeps running.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.tasksPath(args)
			w, err := watch.New(path, watch.WithDebounce(debounce), watch.WithLogger(a.logger))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			run := func() {
				res, err := a.scheduleFile(path, a.now)
				if err != nil {
					a.logger.Error("schedule failed", "file", path, "err", err)
					return
				}
				a.logWarnings(res)
				if publish {
					err = a.publish(ctx, cmd.OutOrStdout(), res, a.now)
				} else {
					err = a.writeResult(ctx, cmd.OutOrStdout(), res, format, a.now)
				}
				if err != nil {
					a.logger.Error("output failed", "err", err)
				}
			}

			run()
			a.logger.Info("watching for changes", "file", w.Path())
			return w.Run(ctx, run)
		},
	}
	c.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or ics")
	c.Flags().BoolVar(&publish, "publish", false, "Publish through the configured sink on every change")
	c.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is processed")
	return c
}

func (a *app) tuiCommand() *cobra.Command {
	var noWatch bool
	c := &cobra.Command{
		Use:   "tui [file]",
		Short: "Browse the schedule of a task file in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.tasksPath(args)
			load := func() (*scheduler.Result, error) {
				return a.scheduleFile(path, a.now)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			opts := []ui.ViewerOption{ui.WithSource(path), ui.WithOutput(cmd.OutOrStdout())}
			if !noWatch && ui.IsTTY(cmd.OutOrStdout()) {
				w, err := watch.New(path)
				if err != nil {
					return err
				}
				changes := make(chan struct{}, 1)
				go func() {
					_ = w.Run(ctx, func() {
						select {
						case changes <- struct{}{}:
						default:
						}
					})
				}()
				opts = append(opts, ui.WithChanges(changes))
			}
			return ui.RunViewer(ctx, load, opts...)
		},
	}
	c.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when the file changes")
	return c
}
