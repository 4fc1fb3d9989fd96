// Package calendar places work on a recurring two-block business day.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidWindows indicates a work window configuration that cannot describe
// a business day.
var ErrInvalidWindows = errors.New("invalid work windows")

// Windows holds the daily availability as hours of day.
// A valid configuration satisfies
// MorningStart < MorningEnd <= AfternoonStart < AfternoonEnd.
type Windows struct {
	MorningStart   int `toml:"morning_start" json:"morning_start" yaml:"morning_start"`
	MorningEnd     int `toml:"morning_end" json:"morning_end" yaml:"morning_end"`
	AfternoonStart int `toml:"afternoon_start" json:"afternoon_start" yaml:"afternoon_start"`
	AfternoonEnd   int `toml:"afternoon_end" json:"afternoon_end" yaml:"afternoon_end"`
}

// DefaultWindows returns the 08:00-12:00 and 14:00-17:00 business day.
func DefaultWindows() Windows {
	return Windows{
		MorningStart:   8,
		MorningEnd:     12,
		AfternoonStart: 14,
		AfternoonEnd:   17,
	}
}

// Validate checks hour ranges and ordering.
func (w Windows) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"morning_start", w.MorningStart},
		{"morning_end", w.MorningEnd},
		{"afternoon_start", w.AfternoonStart},
		{"afternoon_end", w.AfternoonEnd},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 23 {
			return fmt.Errorf("%w: %s must be between 0 and 23, got %d", ErrInvalidWindows, f.name, f.value)
		}
	}
	if w.MorningStart >= w.MorningEnd {
		return fmt.Errorf("%w: morning_start (%d) must be before morning_end (%d)", ErrInvalidWindows, w.MorningStart, w.MorningEnd)
	}
	if w.MorningEnd > w.AfternoonStart {
		return fmt.Errorf("%w: morning_end (%d) must not be after afternoon_start (%d)", ErrInvalidWindows, w.MorningEnd, w.AfternoonStart)
	}
	if w.AfternoonStart >= w.AfternoonEnd {
		return fmt.Errorf("%w: afternoon_start (%d) must be before afternoon_end (%d)", ErrInvalidWindows, w.AfternoonStart, w.AfternoonEnd)
	}
	return nil
}

// HoursPerDay returns the number of work hours in one day.
func (w Windows) HoursPerDay() int {
	return (w.MorningEnd - w.MorningStart) + (w.AfternoonEnd - w.AfternoonStart)
}

// String formats the windows as "08:00-12:00, 14:00-17:00".
func (w Windows) String() string {
	return fmt.Sprintf("%02d:00-%02d:00, %02d:00-%02d:00", w.MorningStart, w.MorningEnd, w.AfternoonStart, w.AfternoonEnd)
}

// Calendar answers work-time queries for a fixed set of windows in one
// location. It holds no mutable state and is safe for concurrent use.
type Calendar struct {
	windows Windows
	loc     *time.Location
}

// New creates a Calendar. A nil location means UTC.
func New(windows Windows, loc *time.Location) (*Calendar, error) {
	if err := windows.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{windows: windows, loc: loc}, nil
}

// MustNew is like New but panics on invalid windows.
func MustNew(windows Windows, loc *time.Location) *Calendar {
	c, err := New(windows, loc)
	if err != nil {
		panic(err)
	}
	return c
}

// Windows returns the configured windows.
func (c *Calendar) Windows() Windows {
	return c.windows
}

// Location returns the location all calendar arithmetic happens in.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) inMorning(hour int) bool {
	return c.windows.MorningStart <= hour && hour < c.windows.MorningEnd
}

func (c *Calendar) inAfternoon(hour int) bool {
	return c.windows.AfternoonStart <= hour && hour < c.windows.AfternoonEnd
}

// at returns t's calendar day at the given whole hour.
func (c *Calendar) at(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, c.loc)
}

func (c *Calendar) nextMorning(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, c.windows.MorningStart, 0, 0, 0, c.loc)
}

// AlignToBusiness drops the sub-hour part of t and moves it forward, never
// backward, to the nearest work instant. Instants already inside a window are
// returned unchanged apart from the truncation.
func (c *Calendar) AlignToBusiness(t time.Time) time.Time {
	t = t.In(c.loc)
	t = c.at(t, t.Hour())

	for {
		hour := t.Hour()
		switch {
		case c.inMorning(hour), c.inAfternoon(hour):
			return t
		case hour < c.windows.MorningStart:
			return c.at(t, c.windows.MorningStart)
		case hour >= c.windows.MorningEnd && hour < c.windows.AfternoonStart:
			return c.at(t, c.windows.AfternoonStart)
		}
		t = c.nextMorning(t)
	}
}

// NextWorkStart returns the first whole-hour work instant at or after both t
// and now.
func (c *Calendar) NextWorkStart(t, now time.Time) time.Time {
	t = t.In(c.loc)
	now = now.In(c.loc)
	if t.Before(now) {
		t = now
	}

	if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		t = c.at(t, t.Hour()).Add(time.Hour)
	}

	return c.AlignToBusiness(t)
}

// AddWorkHours returns the instant reached after consuming hours of work time
// from AlignToBusiness(start). Lunch breaks and nights are skipped. Zero,
// negative and non-finite amounts return the aligned start.
func (c *Calendar) AddWorkHours(start time.Time, hours float64) time.Time {
	current := c.AlignToBusiness(start)
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return current
	}
	remaining := hours

	// Every day holds the same work time, so whole days are skipped in one
	// step. The walk below still consumes a positive remainder, which keeps
	// results that end exactly on a block end on that day.
	if perDay := float64(c.windows.HoursPerDay()); remaining > perDay {
		days := math.Ceil(remaining/perDay) - 1
		remaining -= days * perDay
		y, m, d := current.Date()
		current = time.Date(y, m, d+int(days), current.Hour(), 0, 0, 0, c.loc)
	}

	for remaining > 0 {
		hour := current.Hour()

		var blockEnd time.Time
		morning := false
		switch {
		case c.inMorning(hour):
			blockEnd = c.at(current, c.windows.MorningEnd)
			morning = true
		case c.inAfternoon(hour):
			blockEnd = c.at(current, c.windows.AfternoonEnd)
		default:
			current = c.AlignToBusiness(current)
			continue
		}

		available := blockEnd.Sub(current).Hours()
		if remaining <= available {
			return current.Add(hoursToDuration(remaining))
		}

		remaining -= available
		if morning {
			current = c.at(blockEnd, c.windows.AfternoonStart)
		} else {
			current = c.nextMorning(blockEnd)
		}
	}

	return current
}

// Contains reports whether t lies inside a work window.
func (c *Calendar) Contains(t time.Time) bool {
	t = t.In(c.loc)
	hour := t.Hour()
	return c.inMorning(hour) || c.inAfternoon(hour)
}

// Block is one contiguous piece of work time inside a single window.
type Block struct {
	Start time.Time
	End   time.Time
}

// Hours returns the block length in hours.
func (b Block) Hours() float64 {
	return b.End.Sub(b.Start).Hours()
}

// Blocks splits [start, end) into the work-window segments it covers.
// Non-work time between segments is omitted.
func (c *Calendar) Blocks(start, end time.Time) []Block {
	start = start.In(c.loc)
	end = end.In(c.loc)

	var blocks []Block
	cur := start
	for cur.Before(end) {
		if !c.Contains(cur) {
			cur = c.AlignToBusiness(cur)
			continue
		}

		var blockEnd time.Time
		if c.inMorning(cur.Hour()) {
			blockEnd = c.at(cur, c.windows.MorningEnd)
		} else {
			blockEnd = c.at(cur, c.windows.AfternoonEnd)
		}
		if end.Before(blockEnd) {
			blockEnd = end
		}

		blocks = append(blocks, Block{Start: cur, End: blockEnd})
		cur = blockEnd
	}
	return blocks
}

// WorkHoursBetween sums the work time covered by [start, end).
func (c *Calendar) WorkHoursBetween(start, end time.Time) float64 {
	total := 0.0
	for _, b := range c.Blocks(start, end) {
		total += b.Hours()
	}
	return total
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}
