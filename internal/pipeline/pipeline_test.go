package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nibzard/taskcal/internal/breakdown"
	"github.com/nibzard/taskcal/internal/calendar"
	"github.com/nibzard/taskcal/internal/issues"
	"github.com/nibzard/taskcal/internal/logging"
	"github.com/nibzard/taskcal/internal/scheduler"
	"github.com/nibzard/taskcal/internal/sink"
	"github.com/nibzard/taskcal/internal/tasks"
)

func monday(hour int) time.Time {
	return time.Date(2024, time.January, 8, hour, 0, 0, 0, time.UTC)
}

type fakeSource struct {
	issues []issues.Issue
	err    error
}

func (f fakeSource) List(context.Context) ([]issues.Issue, error) {
	return f.issues, f.err
}

// fakeEngine answers with a fixed raw agent reply per issue number.
type fakeEngine struct {
	replies map[int]string
	errs    map[int]error
}

func (f fakeEngine) Breakdown(ctx context.Context, issue issues.Issue) (*breakdown.Result, error) {
	if err := f.errs[issue.Number]; err != nil {
		return nil, err
	}
	raw := f.replies[issue.Number]
	result := &breakdown.Result{Issue: issue, Raw: raw}
	specs, err := breakdown.Parse(raw, tasks.DecodeOptions{})
	if err != nil {
		return result, err
	}
	result.Tasks = specs
	return result, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []sink.Event
	calls  int
	err    error
}

func (c *captureSink) Publish(_ context.Context, events []sink.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.events = append(c.events, events...)
	return c.err
}

func newTestPipeline(t *testing.T, src IssueLister, eng Breakdowner, out sink.Sink, opts ...Option) *Pipeline {
	t.Helper()
	sched, err := scheduler.New(calendar.MustNew(calendar.DefaultWindows(), time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithClock(func() time.Time { return monday(7) })}, opts...)
	p, err := New(src, eng, sched, out, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRunChainsIssues(t *testing.T) {
	src := fakeSource{issues: []issues.Issue{
		{Number: 1, Title: "Export", URL: "https://github.com/acme/app/issues/1"},
		{Number: 2, Title: "Import"},
	}}
	eng := fakeEngine{replies: map[int]string{
		1: `[{"task":"A","duration_hours":3},{"task":"B","duration_hours":2,"depends_on":["A"]}]`,
		2: "```json\n[{\"task\":\"C\",\"duration_hours\":3}]\n```",
	}}
	out := &captureSink{}

	report, err := newTestPipeline(t, src, eng, out, WithWorkers(2)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Published || out.calls != 1 {
		t.Errorf("published = %v, calls = %d", report.Published, out.calls)
	}
	if len(report.Failures()) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures())
	}

	want := []struct {
		name       string
		issue      int
		start, end time.Time
	}{
		{"A", 1, monday(8), monday(11)},
		{"B", 1, monday(11), monday(15)},
		{"C", 2, monday(15), monday(9).AddDate(0, 0, 1)},
	}
	if len(out.events) != len(want) {
		t.Fatalf("published %d events, want %d", len(out.events), len(want))
	}
	for i, w := range want {
		e := out.events[i]
		if e.Name != w.name || e.Issue.Number != w.issue || !e.Start.Equal(w.start) || !e.End.Equal(w.end) {
			t.Errorf("event %d = %s #%d %v-%v, want %s #%d %v-%v", i, e.Name, e.Issue.Number, e.Start, e.End, w.name, w.issue, w.start, w.end)
		}
	}
	if want := monday(9).AddDate(0, 0, 1); !report.NextStart.Equal(want) {
		t.Errorf("NextStart = %v, want %v", report.NextStart, want)
	}
}

func TestRunContinuesPastParseFailure(t *testing.T) {
	dir := t.TempDir()
	runLog, err := logging.NewRunLogger(dir, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	src := fakeSource{issues: []issues.Issue{{Number: 1, Title: "Vague"}, {Number: 2, Title: "Clear"}}}
	eng := fakeEngine{replies: map[int]string{
		1: "I am not sure what this issue asks for.",
		2: `{"tasks":[{"name":"Fix","hours":2}]}`,
	}}
	out := &captureSink{}

	report, err := newTestPipeline(t, src, eng, out, WithRunLog(runLog)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	runLog.Close()

	failures := report.Failures()
	if len(failures) != 1 || failures[0].Issue.Number != 1 {
		t.Fatalf("failures = %+v", failures)
	}
	if !errors.Is(failures[0].Err, breakdown.ErrUpstreamParse) {
		t.Errorf("failure err = %v, want ErrUpstreamParse", failures[0].Err)
	}
	if !strings.Contains(failures[0].Raw, "not sure") {
		t.Errorf("Raw = %q", failures[0].Raw)
	}

	// The surviving issue starts at the first work instant.
	if len(out.events) != 1 || out.events[0].Name != "Fix" || !out.events[0].Start.Equal(monday(8)) {
		t.Errorf("events = %+v", out.events)
	}

	events, err := logging.ReadEvents(runLog.LogPath)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	var sawRaw, sawPublished bool
	for _, e := range events {
		if e.Type == logging.EventBreakdownFailed && e.Issue == 1 && strings.Contains(e.Raw, "not sure") {
			sawRaw = true
		}
		if e.Type == logging.EventPublished && e.Count == 1 {
			sawPublished = true
		}
	}
	if !sawRaw || !sawPublished {
		t.Errorf("run log missing events (raw=%v published=%v): %+v", sawRaw, sawPublished, events)
	}
}

func TestRunReportsSchedulingErrors(t *testing.T) {
	src := fakeSource{issues: []issues.Issue{{Number: 3}}}
	eng := fakeEngine{replies: map[int]string{
		3: `[{"task":"A","depends_on":["B"]},{"task":"B","depends_on":["A"]}]`,
	}}
	report, err := newTestPipeline(t, src, eng, &captureSink{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Issues) != 1 || !errors.Is(report.Issues[0].Err, tasks.ErrCycleDetected) {
		t.Errorf("issues = %+v, want cycle error", report.Issues)
	}
}

func TestRunCapacityPerIssue(t *testing.T) {
	src := fakeSource{issues: []issues.Issue{{Number: 4}}}
	eng := fakeEngine{replies: map[int]string{
		4: `[{"task":"1"},{"task":"2"},{"task":"3"},{"task":"4"},{"task":"5"},{"task":"6"},{"task":"7"}]`,
	}}
	report, err := newTestPipeline(t, src, eng, &captureSink{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	ir := report.Issues[0]
	if len(ir.Tasks) != 5 || len(ir.Dropped) != 2 {
		t.Errorf("tasks = %d, dropped = %d; want 5 and 2", len(ir.Tasks), len(ir.Dropped))
	}
	if len(report.Events) != 5 {
		t.Errorf("events = %d, want 5", len(report.Events))
	}
}

func TestRunDryRun(t *testing.T) {
	src := fakeSource{issues: []issues.Issue{{Number: 1}}}
	eng := fakeEngine{replies: map[int]string{1: `[{"task":"A","hours":1}]`}}

	report, err := newTestPipeline(t, src, eng, nil, WithDryRun(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Published || len(report.Events) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		src := fakeSource{err: issues.ErrGHAuthRequired}
		_, err := newTestPipeline(t, src, fakeEngine{}, &captureSink{}).Run(context.Background())
		if !errors.Is(err, issues.ErrGHAuthRequired) {
			t.Errorf("Run() error = %v, want ErrGHAuthRequired", err)
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		src := fakeSource{issues: []issues.Issue{{Number: 1}}}
		eng := fakeEngine{replies: map[int]string{1: `[{"task":"A","hours":1}]`}}
		out := &captureSink{err: errors.New("disk full")}
		report, err := newTestPipeline(t, src, eng, out).Run(context.Background())
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("Run() error = %v", err)
		}
		if report == nil || report.Published {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("agent failure is per issue", func(t *testing.T) {
		src := fakeSource{issues: []issues.Issue{{Number: 1}, {Number: 2}}}
		eng := fakeEngine{
			replies: map[int]string{2: `[{"task":"B","hours":1}]`},
			errs:    map[int]error{1: breakdown.ErrAgentNotFound},
		}
		report, err := newTestPipeline(t, src, eng, &captureSink{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !errors.Is(report.Issues[0].Err, breakdown.ErrAgentNotFound) || report.Issues[1].Failed() {
			t.Errorf("issues = %+v", report.Issues)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := fakeSource{issues: []issues.Issue{{Number: 1}}}
		_, err := newTestPipeline(t, src, fakeEngine{}, &captureSink{}).Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	})

	t.Run("missing sink", func(t *testing.T) {
		sched, _ := scheduler.New(nil)
		if _, err := New(fakeSource{}, fakeEngine{}, sched, nil); err == nil {
			t.Error("New() without sink = nil error")
		}
	})
}
