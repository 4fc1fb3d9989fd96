// Package sink publishes scheduled tasks as calendar events.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nibzard/taskcal/internal/calendar"
	"github.com/nibzard/taskcal/internal/scheduler"
)

// Kind selects a sink implementation.
type Kind string

const (
	KindJSON Kind = "json"
	KindICS  Kind = "ics"
	KindHook Kind = "hook"
)

// ParseKind validates a sink kind. Empty means json.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindJSON, nil
	case KindJSON, KindICS, KindHook:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sink kind %q (want json, ics or hook)", s)
	}
}

// uidNamespace scopes event UIDs to taskcal.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nibzard/taskcal"))

// IssueRef identifies the issue a task came from.
type IssueRef struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Event is one scheduled task ready for a calendar.
type Event struct {
	UID string `json:"uid"`
	scheduler.ScheduledTask
	Issue *IssueRef `json:"issue,omitempty"`
}

// Summary returns the event title.
func (e Event) Summary() string {
	if e.Issue != nil && e.Issue.Number > 0 {
		return fmt.Sprintf("%s (#%d)", e.Name, e.Issue.Number)
	}
	return e.Name
}

// Description returns the event body.
func (e Event) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimated %g h of work.", e.Duration)
	if len(e.DependsOn) > 0 {
		fmt.Fprintf(&b, "\nAfter: %s", strings.Join(e.DependsOn, ", "))
	}
	if e.Issue != nil {
		if e.Issue.Title != "" {
			fmt.Fprintf(&b, "\nIssue: %s", e.Issue.Title)
		}
		if e.Issue.URL != "" {
			fmt.Fprintf(&b, "\n%s", e.Issue.URL)
		}
	}
	return b.String()
}

// NewEvents wraps scheduled tasks as events. UIDs are derived from the issue,
// task name and start, so publishing the same schedule twice yields the same
// UIDs.
func NewEvents(scheduled []scheduler.ScheduledTask, issue *IssueRef) []Event {
	events := make([]Event, len(scheduled))
	for i, st := range scheduled {
		key := fmt.Sprintf("%s|%s|%s", issueKey(issue), st.Name, st.Start.UTC().Format(time.RFC3339))
		events[i] = Event{
			UID:           uuid.NewSHA1(uidNamespace, []byte(key)).String(),
			ScheduledTask: st,
			Issue:         issue,
		}
	}
	return events
}

func issueKey(issue *IssueRef) string {
	if issue == nil {
		return ""
	}
	if issue.URL != "" {
		return issue.URL
	}
	return fmt.Sprintf("#%d", issue.Number)
}

// Sink publishes a batch of events.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}

// Options configures New.
type Options struct {
	Kind Kind
	// Path is the output file for json and ics. Empty or "-" means Stdout.
	Path string
	// HookCommand is the executable run once per event by the hook sink.
	HookCommand string
	WorkDir     string
	// Calendar enables splitting ICS events at lunch and night breaks.
	Calendar *calendar.Calendar
	Stdout   io.Writer
	Now      func() time.Time
}

// New creates the sink described by opts.
func New(opts Options) (Sink, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindICS:
		return &ICSSink{out: output{path: opts.Path, stdout: opts.Stdout}, cal: opts.Calendar, now: opts.Now}, nil
	case KindHook:
		if strings.TrimSpace(opts.HookCommand) == "" {
			return nil, fmt.Errorf("hook sink requires a hook command")
		}
		return &HookSink{Command: opts.HookCommand, WorkDir: opts.WorkDir}, nil
	default:
		return &JSONSink{out: output{path: opts.Path, stdout: opts.Stdout}, now: opts.Now}, nil
	}
}

// output writes a whole document to a file or to stdout.
type output struct {
	path   string
	stdout io.Writer
}

func (o output) write(data []byte) error {
	if o.path == "" || o.path == "-" {
		_, err := o.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", o.path, err)
	}
	return nil
}
