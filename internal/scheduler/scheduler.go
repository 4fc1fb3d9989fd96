// Package scheduler places ordered tasks on the business calendar.
package scheduler

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskcal/internal/calendar"
	"github.com/nibzard/taskcal/internal/tasks"
)

// DefaultMaxTasksPerRun caps how many tasks one scheduling call places.
const DefaultMaxTasksPerRun = 5

// ErrCapacityExceeded reports that a batch had more tasks than one run places.
// It never fails a call; see Result.Err.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ScheduledTask is a task with its placement on the calendar.
type ScheduledTask struct {
	Name      string    `json:"task" yaml:"task"`
	Duration  float64   `json:"duration" yaml:"duration"`
	DependsOn []string  `json:"depends_on" yaml:"depends_on"`
	Start     time.Time `json:"start" yaml:"start"`
	End       time.Time `json:"end" yaml:"end"`
	TimeZone  string    `json:"time_zone" yaml:"time_zone"`
}

// Spec returns the task specification the placement was made for.
func (t ScheduledTask) Spec() tasks.Spec {
	return tasks.Spec{Name: t.Name, Duration: t.Duration, DependsOn: t.DependsOn}
}

// Result is the outcome of one scheduling call.
type Result struct {
	Tasks    []ScheduledTask `json:"tasks"`
	Dropped  []tasks.Spec    `json:"dropped,omitempty"`
	Warnings []tasks.Warning `json:"warnings,omitempty"`
	// NextStart is the first instant a following run may use without
	// overlapping this one.
	NextStart time.Time `json:"next_start"`
}

// Err returns an error wrapping ErrCapacityExceeded when tasks were dropped.
func (r *Result) Err() error {
	if r == nil || len(r.Dropped) == 0 {
		return nil
	}
	names := make([]string, len(r.Dropped))
	for i, s := range r.Dropped {
		names[i] = s.Name
	}
	return fmt.Errorf("%w: %d task(s) not scheduled: %s", ErrCapacityExceeded, len(names), strings.Join(names, ", "))
}

// Scheduler turns batches of task specs into calendar placements.
// It is safe for concurrent use.
type Scheduler struct {
	cal             *calendar.Calendar
	now             func() time.Time
	startTime       time.Time
	maxTasks        int
	strict          bool
	defaultDuration float64
	logger          *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used by Schedule.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStartTime sets the earliest instant placements may use. Instants in
// the past are clamped to now.
func WithStartTime(t time.Time) Option {
	return func(s *Scheduler) {
		s.startTime = t
	}
}

// WithMaxTasks sets the per-run capacity. Zero means DefaultMaxTasksPerRun.
func WithMaxTasks(n int) Option {
	return func(s *Scheduler) {
		s.maxTasks = n
	}
}

// WithStrict rejects tasks without a duration instead of defaulting them.
func WithStrict(strict bool) Option {
	return func(s *Scheduler) {
		s.strict = strict
	}
}

// WithDefaultDuration sets the hours given to tasks without a duration.
func WithDefaultDuration(hours float64) Option {
	return func(s *Scheduler) {
		s.defaultDuration = hours
	}
}

// WithLogger sets the logger used for placement diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler. A nil calendar means the default windows in UTC.
func New(cal *calendar.Calendar, opts ...Option) (*Scheduler, error) {
	if cal == nil {
		cal = calendar.MustNew(calendar.DefaultWindows(), time.UTC)
	}
	s := &Scheduler{
		cal:             cal,
		now:             time.Now,
		maxTasks:        DefaultMaxTasksPerRun,
		defaultDuration: tasks.DefaultDuration,
		logger:          log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxTasks < 0 {
		return nil, fmt.Errorf("max tasks per run must not be negative, got %d", s.maxTasks)
	}
	if s.maxTasks == 0 {
		s.maxTasks = DefaultMaxTasksPerRun
	}
	return s, nil
}

// Calendar returns the calendar placements are made on.
func (s *Scheduler) Calendar() *calendar.Calendar {
	return s.cal
}

// MaxTasks returns the per-run capacity.
func (s *Scheduler) MaxTasks() int {
	return s.maxTasks
}

// Schedule places specs using the scheduler's clock.
func (s *Scheduler) Schedule(specs []tasks.Spec) (*Result, error) {
	return s.ScheduleAt(s.now(), specs)
}

// ScheduleAt places specs as of now. Invalid specs and dependency cycles fail
// the whole call; nothing is placed.
func (s *Scheduler) ScheduleAt(now time.Time, specs []tasks.Spec) (*Result, error) {
	return s.ScheduleFrom(now, s.startTime, specs)
}

// ScheduleFrom is ScheduleAt with an explicit earliest start. A zero from
// means now. Passing the NextStart of a previous Result continues that run
// without overlap.
func (s *Scheduler) ScheduleFrom(now, from time.Time, specs []tasks.Spec) (*Result, error) {
	validation := tasks.Validate(specs, tasks.ValidationOptions{
		Strict:          s.strict,
		DefaultDuration: s.defaultDuration,
	})
	if !validation.Valid {
		return nil, validation.Err()
	}

	ordered, err := tasks.Order(validation.Tasks)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Tasks:    make([]ScheduledTask, 0, min(len(ordered), s.maxTasks)),
		Warnings: validation.Warnings,
	}

	if len(ordered) > s.maxTasks {
		result.Dropped = ordered[s.maxTasks:]
		ordered = ordered[:s.maxTasks]
		result.Warnings = append(result.Warnings, tasks.Warning{
			Kind:    tasks.WarningCapacityExceeded,
			Message: fmt.Sprintf("%d task(s) exceed the limit of %d per run and were not scheduled", len(result.Dropped), s.maxTasks),
		})
	}

	cursor := now
	if !from.IsZero() {
		cursor = from
	}
	current := s.cal.NextWorkStart(cursor, now)
	zone := s.cal.Location().String()

	for _, t := range ordered {
		start := s.cal.NextWorkStart(current, now)
		end := s.cal.AddWorkHours(start, t.Duration)
		current = end

		s.logger.Debug("placed task", "task", t.Name, "start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))
		result.Tasks = append(result.Tasks, ScheduledTask{
			Name:      t.Name,
			Duration:  t.Duration,
			DependsOn: t.DependsOn,
			Start:     start,
			End:       end,
			TimeZone:  zone,
		})
	}

	result.NextStart = s.cal.NextWorkStart(current, now)
	return result, nil
}
