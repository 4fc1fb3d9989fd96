package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/config"
	"github.com/nibzard/taskcal/internal/logging"
	"github.com/nibzard/taskcal/internal/statedir"
	"github.com/nibzard/taskcal/internal/tasks"
)

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a config file, a prompt template and a sample task file",
		Long: `Init creates .taskcal/taskcal.toml, .taskcal/breakdown.tmpl and the
configured task file in the project directory. Existing files are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			root := a.cfg.ProjectRoot
			if err := os.MkdirAll(statedir.DirPath(root), 0755); err != nil {
				return fmt.Errorf("create %s: %w", statedir.Dir, err)
			}

			steps := []struct {
				path  string
				write func(string) error
			}{
				{statedir.ConfigPath(root), config.WriteExample},
				{statedir.PromptPath(root), func(p string) error {
					return os.WriteFile(p, []byte(breakdown.DefaultPrompt), 0644)
				}},
				{a.cfg.TasksFile, func(p string) error {
					return tasks.SaveFile(p, sampleTasks())
				}},
			}
			for _, step := range steps {
				rel := relativeTo(root, step.path)
				if _, err := os.Stat(step.path); err == nil {
					fmt.Fprintf(out, "  exists   %s\n", rel)
					continue
				}
				if err := step.write(step.path); err != nil {
					return err
				}
				fmt.Fprintf(out, "  created  %s\n", rel)
			}
			return nil
		},
	}
}

func sampleTasks() []tasks.Spec {
	return []tasks.Spec{
		{Name: "Write design notes", Duration: 2},
		{Name: "Implement feature", Duration: 5, DependsOn: []string{"Write design notes"}},
		{Name: "Review and merge", Duration: 1, DependsOn: []string{"Implement feature"}},
	}
}

func relativeTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func (a *app) configCommand() *cobra.Command {
	var showSources, example bool
	c := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Config prints every setting after defaults, config files, TASKCAL_*
environment variables and flags have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if example {
				fmt.Fprint(out, config.ExampleConfig())
				return nil
			}

			if len(a.sources.Files) == 0 {
				fmt.Fprintln(out, "Config files: (none - using defaults)")
			} else {
				fmt.Fprintln(out, "Config files:")
				for _, f := range a.sources.Files {
					fmt.Fprintf(out, "  %s\n", f)
				}
			}
			fmt.Fprintln(out)

			for _, key := range config.Fields() {
				value, _ := a.cfg.Value(key)
				line := fmt.Sprintf("%s = %q", key, value)
				if showSources {
					line = fmt.Sprintf("%-28s (%s)", line, a.sources.Sources[key])
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&showSources, "sources", false, "Show where each value came from")
	c.Flags().BoolVar(&example, "example", false, "Print an example config file")

	c.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file with the highest priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.sources.GetConfigFile()
			if path == "" {
				path = "(none - using defaults)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return c
}

func (a *app) logsCommand() *cobra.Command {
	var (
		lines int
		list  bool
	)
	c := &cobra.Command{
		Use:   "logs [run-id]",
		Short: "Show the run log of the latest plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logDir, err := logging.FindLogDir(a.cfg.LogDir, a.cfg.ProjectRoot)
			if err != nil {
				return fmt.Errorf("finding log directory: %w", err)
			}

			if list {
				runs, err := logging.FindLogRuns(logDir)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No log files found.")
					return nil
				}
				for _, run := range runs {
					fmt.Fprintf(out, "%s  %s\n", run.RunID, run.ModTime.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			var logPath string
			if len(args) == 1 {
				logPath = filepath.Join(logDir, args[0]+".jsonl")
			} else if logPath, err = logging.FindLatestLog(logDir); err != nil {
				return fmt.Errorf("finding latest log: %w", err)
			}
			if logPath == "" {
				fmt.Fprintln(out, "No log files found.")
				return nil
			}

			fmt.Fprintf(out, "Run log: %s\n\n", logPath)
			return logging.TailLog(out, logPath, lines)
		},
	}
	c.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show (0 for all)")
	c.Flags().BoolVar(&list, "list", false, "List run logs, newest first")
	return c
}
