package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/logging"
	"github.com/nibzard/taskcal/internal/pipeline"
	"github.com/nibzard/taskcal/internal/scheduler"
	"github.com/nibzard/taskcal/internal/sink"
	"github.com/nibzard/taskcal/internal/ui"
)

func (a *app) planCommand() *cobra.Command {
	var (
		dryRun   bool
		failFast bool
		nowFlag  string
	)
	c := &cobra.Command{
		Use:   "plan",
		Short: "Break GitHub issues into tasks and schedule them",
		Long: `Plan lists issues with the gh CLI, asks the configured agent to break
each issue into tasks, schedules the issues one after another on the work
calendar and publishes the result through the configured sink.

Issues whose breakdown cannot be parsed or scheduled are reported and
skipped; the agent's raw answer is kept in the run log (see "taskcal logs").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := a.clock(nowFlag)
			if err != nil {
				return err
			}
			p, runLog, err := a.newPipeline(cmd.OutOrStdout(), now, dryRun, failFast)
			if err != nil {
				return err
			}
			defer runLog.Close()

			report, err := p.Run(cmd.Context())
			if report != nil {
				printReport(cmd.ErrOrStderr(), report)
				if dryRun {
					if werr := ui.WriteSchedule(cmd.OutOrStdout(), combinedResult(report)); werr != nil {
						return werr
					}
				}
			}
			if err != nil {
				return err
			}
			if failures := report.Failures(); len(failures) > 0 {
				return fmt.Errorf("%d of %d issue(s) could not be planned", len(failures), len(report.Issues))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Schedule and print without publishing")
	c.Flags().BoolVar(&failFast, "fail-fast", false, "Stop outstanding breakdowns after the first failure")
	c.Flags().StringVar(&nowFlag, "now", "", "Schedule as if the current time were this instant (RFC 3339)")
	return c
}

// newPipeline wires the issue source, the agent, the scheduler, the sink and
// the run log from the configuration. A run log that cannot be created is
// reported and skipped.
func (a *app) newPipeline(w io.Writer, now func() time.Time, dryRun, failFast bool) (*pipeline.Pipeline, *logging.RunLogger, error) {
	source, err := issues.NewSource(a.cfg.IssueOptions(), a.ghExec)
	if err != nil {
		return nil, nil, err
	}

	kind := a.cfg.AgentKind()
	if a.agentRunner == nil {
		if _, err := breakdown.FindBinary(kind, a.cfg.Agent.Binary); err != nil {
			return nil, nil, err
		}
	}
	agent, err := breakdown.NewAgent(kind, a.cfg.AgentSettings(), a.agentRunner)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := breakdown.LoadRenderer(a.cfg.Agent.PromptFile)
	if err != nil {
		return nil, nil, err
	}
	decode, err := a.cfg.DecodeOptions()
	if err != nil {
		return nil, nil, err
	}
	engine, err := breakdown.NewEngine(agent,
		breakdown.WithRenderer(renderer),
		breakdown.WithRepo(a.cfg.Issues.Repo),
		breakdown.WithDecodeOptions(decode),
		breakdown.WithClock(now),
	)
	if err != nil {
		return nil, nil, err
	}

	sched, err := a.newScheduler(now)
	if err != nil {
		return nil, nil, err
	}

	var out sink.Sink
	if !dryRun {
		if out, err = a.newSink(w, now); err != nil {
			return nil, nil, err
		}
	}

	runLog, err := logging.NewRunLogger(a.cfg.LogDir, a.cfg.ProjectRoot)
	if err != nil {
		a.logger.Warn("run log disabled", "err", err)
	}

	opts := []pipeline.Option{
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithFailFast(failFast),
		pipeline.WithDryRun(dryRun),
		pipeline.WithClock(now),
		pipeline.WithRunLog(runLog),
		pipeline.WithLogger(a.logger),
	}
	start, ok, err := a.cfg.Start()
	if err != nil {
		return nil, nil, err
	}
	if ok {
		opts = append(opts, pipeline.WithStartTime(start))
	}

	p, err := pipeline.New(source, engine, sched, out, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, runLog, nil
}

func printReport(w io.Writer, report *pipeline.Report) {
	for _, ir := range report.Issues {
		switch {
		case ir.Failed():
			fmt.Fprintf(w, "❌ #%d %s: %v\n", ir.Issue.Number, ir.Issue.Title, ir.Err)
		case len(ir.Dropped) > 0:
			fmt.Fprintf(w, "⚠️  #%d %s: %d task(s) scheduled, %d over the limit\n", ir.Issue.Number, ir.Issue.Title, len(ir.Tasks), len(ir.Dropped))
		default:
			fmt.Fprintf(w, "✅ #%d %s: %d task(s) scheduled\n", ir.Issue.Number, ir.Issue.Title, len(ir.Tasks))
		}
	}
	if !report.NextStart.IsZero() {
		fmt.Fprintf(w, "Next free slot: %s\n", report.NextStart.Format(time.RFC3339))
	}
}

// combinedResult flattens the per-issue schedules for display.
func combinedResult(report *pipeline.Report) *scheduler.Result {
	res := &scheduler.Result{NextStart: report.NextStart}
	for _, ir := range report.Issues {
		res.Tasks = append(res.Tasks, ir.Tasks...)
		res.Dropped = append(res.Dropped, ir.Dropped...)
		res.Warnings = append(res.Warnings, ir.Warnings...)
	}
	return res
}
