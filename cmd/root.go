// Package cmd implements the CLI command structure for taskcal.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/config"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/logging"
	"github.com/nibzard/taskcal/internal/scheduler"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries what every command needs. Tests replace the writers, the
// clock and the external command runners.
type app struct {
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	ghExec      issues.CommandExecutor
	agentRunner breakdown.Runner

	dir     string
	sources *config.ConfigWithSources
	cfg     *config.Config
	logger  *log.Logger
}

func newApp() *app {
	return &app{
		out:    os.Stdout,
		errOut: os.Stderr,
		now:    time.Now,
	}
}

// Run executes the taskcal CLI.
func Run(ctx context.Context, args []string) error {
	return newApp().execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskcal",
		Short: "Schedule dependent tasks onto business hours",
		Long: `taskcal orders tasks by their dependencies and places them on a work
calendar (08:00-12:00 and 14:00-17:00 by default). Tasks come from a JSON or
YAML file, or from GitHub issues broken down by an agent CLI.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("taskcal version {{.Version}}\n")

	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", "", "Project directory (default: current directory)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.scheduleCommand(),
		a.validateCommand(),
		a.planCommand(),
		a.watchCommand(),
		a.tuiCommand(),
		a.initCommand(),
		a.configCommand(),
		a.logsCommand(),
		a.versionCommand(),
	)
	return root
}

// loadConfig resolves the layered configuration once the flags are parsed.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	dir := a.dir
	if dir == "" {
		dir = "."
	}
	cws, err := config.LoadDir(dir, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cws.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.sources = cws
	a.cfg = cws.Config
	a.logger = logging.NewConsoleFromConfig(a.errOut, a.cfg.LogLevel, a.cfg.LogFormat, a.cfg.LogTimestamps, a.cfg.LogCaller)
	return nil
}

// tasksPath returns the task file named on the command line, or the
// configured one.
func (a *app) tasksPath(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return a.cfg.TasksFile
	}
	if filepath.IsAbs(args[0]) {
		return args[0]
	}
	return filepath.Join(a.cfg.ProjectRoot, args[0])
}

// newScheduler builds a scheduler from the configuration. now overrides the
// wall clock when non-nil.
func (a *app) newScheduler(now func() time.Time) (*scheduler.Scheduler, error) {
	cal, err := a.cfg.NewCalendar()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = a.now
	}
	opts := []scheduler.Option{
		scheduler.WithClock(now),
		scheduler.WithMaxTasks(a.cfg.MaxTasksPerRun),
		scheduler.WithStrict(a.cfg.Strict),
		scheduler.WithLogger(a.logger),
	}
	start, ok, err := a.cfg.Start()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, scheduler.WithStartTime(start))
	}
	return scheduler.New(cal, opts...)
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Skip config loading so version works in a broken project.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "taskcal version %s\n", Version)
			return nil
		},
	}
}
