// Package pipeline plans GitHub issues onto the work calendar: issues are
// broken down concurrently, scheduled one after another in issue order and
// published through a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/logging"
	"github.com/nibzard/taskcal/internal/scheduler"
	"github.com/nibzard/taskcal/internal/sink"
	"github.com/nibzard/taskcal/internal/tasks"
)

// DefaultWorkers is the breakdown concurrency when none is configured.
const DefaultWorkers = 2

// IssueLister lists the issues to plan.
type IssueLister interface {
	List(ctx context.Context) ([]issues.Issue, error)
}

// Breakdowner turns one issue into task specs.
type Breakdowner interface {
	Breakdown(ctx context.Context, issue issues.Issue) (*breakdown.Result, error)
}

// IssueReport is the outcome for one issue.
type IssueReport struct {
	Issue    issues.Issue
	Tasks    []scheduler.ScheduledTask
	Dropped  []tasks.Spec
	Warnings []tasks.Warning
	// Raw is the agent answer, kept when it could not be parsed.
	Raw string
	Err error
}

// Failed reports whether the issue produced no schedule.
func (r IssueReport) Failed() bool {
	return r.Err != nil
}

// Report is the outcome of a pipeline run.
type Report struct {
	Issues    []IssueReport
	Events    []sink.Event
	NextStart time.Time
	Published bool
}

// Failures returns the reports of issues that could not be planned.
func (r *Report) Failures() []IssueReport {
	var failed []IssueReport
	for _, ir := range r.Issues {
		if ir.Failed() {
			failed = append(failed, ir)
		}
	}
	return failed
}

// Pipeline wires an issue source, a breakdown engine, a scheduler and a sink.
type Pipeline struct {
	source    IssueLister
	engine    Breakdowner
	scheduler *scheduler.Scheduler
	sink      sink.Sink
	runLog    *logging.RunLogger
	logger    *log.Logger
	workers   int
	failFast  bool
	dryRun    bool
	start     time.Time
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds concurrent breakdowns.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithFailFast stops outstanding breakdowns after the first failure.
func WithFailFast(failFast bool) Option {
	return func(p *Pipeline) {
		p.failFast = failFast
	}
}

// WithDryRun schedules without publishing.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithStartTime sets the earliest start of the first issue.
func WithStartTime(t time.Time) Option {
	return func(p *Pipeline) {
		p.start = t
	}
}

// WithClock sets the clock the run is scheduled against.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunLog records pipeline events to a JSONL run log.
func WithRunLog(r *logging.RunLogger) Option {
	return func(p *Pipeline) {
		p.runLog = r
	}
}

// WithLogger sets the console logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline. out may be nil when the pipeline runs dry.
func New(source IssueLister, engine Breakdowner, sched *scheduler.Scheduler, out sink.Sink, opts ...Option) (*Pipeline, error) {
	if source == nil || engine == nil || sched == nil {
		return nil, errors.New("pipeline requires an issue source, a breakdown engine and a scheduler")
	}
	p := &Pipeline{
		source:    source,
		engine:    engine,
		scheduler: sched,
		sink:      out,
		logger:    log.New(io.Discard),
		workers:   DefaultWorkers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil && !p.dryRun {
		return nil, errors.New("pipeline requires a sink unless running dry")
	}
	return p, nil
}

// Run plans every listed issue. Per-issue failures are reported in the
// Report and do not fail the run; listing, cancellation and publishing
// errors do.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	now := p.now()
	p.record(logging.Event{Type: logging.EventRunStarted})

	list, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	p.logger.Info("fetched issues", "count", len(list))
	p.record(logging.Event{Type: logging.EventIssuesFetched, Count: len(list)})

	results := p.breakdownAll(ctx, list)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{NextStart: p.start}
	cursor := p.start
	for i, issue := range list {
		ir := p.schedule(now, cursor, issue, results[i])
		if !ir.Failed() {
			report.Events = append(report.Events, sink.NewEvents(ir.Tasks, issueRef(issue))...)
			if len(ir.Tasks) > 0 {
				cursor = ir.Tasks[len(ir.Tasks)-1].End
				report.NextStart = p.scheduler.Calendar().NextWorkStart(cursor, now)
			}
		}
		report.Issues = append(report.Issues, ir)
	}

	if !p.dryRun {
		if err := p.sink.Publish(ctx, report.Events); err != nil {
			p.record(logging.Event{Type: logging.EventPublished, Error: err.Error(), Count: len(report.Events)})
			return report, fmt.Errorf("publish: %w", err)
		}
		report.Published = true
		p.logger.Info("published events", "count", len(report.Events))
		p.record(logging.Event{Type: logging.EventPublished, Count: len(report.Events)})
	}

	p.record(logging.Event{
		Type:    logging.EventRunFinished,
		Count:   len(report.Events),
		Message: fmt.Sprintf("%d of %d issue(s) planned", len(list)-len(report.Failures()), len(list)),
	})
	return report, nil
}

// breakdownAll runs the engine for every issue with bounded concurrency.
// The result slice is indexed like list.
func (p *Pipeline) breakdownAll(ctx context.Context, list []issues.Issue) []JobResult[*breakdown.Result] {
	pool := NewWorkerPool[*breakdown.Result](ctx, p.workers, p.failFast)
	for _, issue := range list {
		issue := issue
		pool.Submit(fmt.Sprintf("#%d", issue.Number), func(ctx context.Context) (*breakdown.Result, error) {
			p.logger.Debug("breaking down issue", "issue", issue.Number, "title", issue.Title)
			return p.engine.Breakdown(ctx, issue)
		})
	}
	results, _ := pool.Wait()
	return results
}

// schedule turns one breakdown result into an IssueReport, placing its tasks
// no earlier than from.
func (p *Pipeline) schedule(now, from time.Time, issue issues.Issue, job JobResult[*breakdown.Result]) IssueReport {
	ir := IssueReport{Issue: issue}

	if job.Err != nil {
		ir.Err = job.Err
		var parseErr *breakdown.ParseError
		if errors.As(job.Err, &parseErr) {
			ir.Raw = parseErr.Raw
		}
		p.logger.Warn("breakdown failed", "issue", issue.Number, "err", job.Err)
		p.record(logging.Event{Type: logging.EventBreakdownFailed, Issue: issue.Number, Error: job.Err.Error(), Raw: ir.Raw})
		return ir
	}

	p.record(logging.Event{Type: logging.EventBreakdownOK, Issue: issue.Number, Count: len(job.Value.Tasks)})

	res, err := p.scheduler.ScheduleFrom(now, from, job.Value.Tasks)
	if err != nil {
		ir.Err = err
		p.logger.Warn("scheduling failed", "issue", issue.Number, "err", err)
		p.record(logging.Event{Type: logging.EventBreakdownFailed, Issue: issue.Number, Error: err.Error(), Raw: job.Value.Raw})
		return ir
	}

	ir.Tasks = res.Tasks
	ir.Dropped = res.Dropped
	ir.Warnings = res.Warnings
	for _, t := range res.Tasks {
		start, end := t.Start, t.End
		p.record(logging.Event{Type: logging.EventTaskScheduled, Issue: issue.Number, Task: t.Name, Start: &start, End: &end})
	}
	for _, w := range res.Warnings {
		p.logger.Warn(w.Message, "issue", issue.Number, "kind", w.Kind, "task", w.Task)
		p.record(logging.Event{Type: logging.EventWarning, Issue: issue.Number, Task: w.Task, Message: w.String()})
	}
	if len(res.Dropped) > 0 {
		p.record(logging.Event{Type: logging.EventTasksDropped, Issue: issue.Number, Count: len(res.Dropped), Error: res.Err().Error()})
	}
	return ir
}

func (p *Pipeline) record(e logging.Event) {
	if err := p.runLog.Record(e); err != nil {
		p.logger.Error("write run log", "err", err)
	}
}

func issueRef(issue issues.Issue) *sink.IssueRef {
	return &sink.IssueRef{Number: issue.Number, Title: issue.Title, URL: issue.URL}
}
