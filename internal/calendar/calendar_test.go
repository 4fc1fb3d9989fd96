package calendar

import (
	"errors"
	"math"
	"testing"
	"time"
)

// monday is 2024-01-08, a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2024, time.January, 8, hour, minute, 0, 0, time.UTC)
}

func day(offset, hour, minute int) time.Time {
	return time.Date(2024, time.January, 8+offset, hour, minute, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	c, err := New(DefaultWindows(), time.UTC)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestWindowsValidate(t *testing.T) {
	tests := []struct {
		name    string
		windows Windows
		wantErr bool
	}{
		{"default", DefaultWindows(), false},
		{"no lunch", Windows{MorningStart: 9, MorningEnd: 13, AfternoonStart: 13, AfternoonEnd: 18}, false},
		{"morning inverted", Windows{MorningStart: 12, MorningEnd: 8, AfternoonStart: 14, AfternoonEnd: 17}, true},
		{"empty morning", Windows{MorningStart: 8, MorningEnd: 8, AfternoonStart: 14, AfternoonEnd: 17}, true},
		{"overlapping blocks", Windows{MorningStart: 8, MorningEnd: 15, AfternoonStart: 14, AfternoonEnd: 17}, true},
		{"afternoon inverted", Windows{MorningStart: 8, MorningEnd: 12, AfternoonStart: 17, AfternoonEnd: 14}, true},
		{"hour out of range", Windows{MorningStart: 8, MorningEnd: 12, AfternoonStart: 14, AfternoonEnd: 24}, true},
		{"negative hour", Windows{MorningStart: -1, MorningEnd: 12, AfternoonStart: 14, AfternoonEnd: 17}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.windows.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWindows) {
				t.Errorf("Validate() error = %v, want ErrInvalidWindows", err)
			}
		})
	}
}

func TestNewRejectsInvalidWindows(t *testing.T) {
	_, err := New(Windows{MorningStart: 10, MorningEnd: 9, AfternoonStart: 14, AfternoonEnd: 17}, nil)
	if !errors.Is(err, ErrInvalidWindows) {
		t.Fatalf("New() error = %v, want ErrInvalidWindows", err)
	}
}

func TestNewDefaultsToUTC(t *testing.T) {
	c, err := New(DefaultWindows(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", c.Location())
	}
}

func TestHoursPerDay(t *testing.T) {
	if got := DefaultWindows().HoursPerDay(); got != 7 {
		t.Errorf("HoursPerDay() = %d, want 7", got)
	}
}

func TestAlignToBusiness(t *testing.T) {
	c := testCalendar(t)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"before morning", monday(7, 0), monday(8, 0)},
		{"midnight", monday(0, 0), monday(8, 0)},
		{"morning start", monday(8, 0), monday(8, 0)},
		{"inside morning truncates", monday(9, 45), monday(9, 0)},
		{"morning end is lunch", monday(12, 0), monday(14, 0)},
		{"lunch with minutes", monday(13, 30), monday(14, 0)},
		{"inside afternoon", monday(16, 59), monday(16, 0)},
		{"afternoon end", monday(17, 0), day(1, 8, 0)},
		{"late evening", monday(23, 10), day(1, 8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AlignToBusiness(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("AlignToBusiness(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlignToBusinessNeverMovesBackward(t *testing.T) {
	c := testCalendar(t)
	for h := 0; h < 24; h++ {
		in := monday(h, 0)
		got := c.AlignToBusiness(in)
		if got.Before(in) {
			t.Errorf("AlignToBusiness(%v) = %v moved backward", in, got)
		}
		if !c.Contains(got) {
			t.Errorf("AlignToBusiness(%v) = %v is outside the work windows", in, got)
		}
	}
}

func TestNextWorkStart(t *testing.T) {
	c := testCalendar(t)

	tests := []struct {
		name string
		t    time.Time
		now  time.Time
		want time.Time
	}{
		{"whole hour inside window", monday(9, 0), monday(7, 0), monday(9, 0)},
		{"rounds up sub-hour", monday(9, 1), monday(7, 0), monday(10, 0)},
		{"rounds up seconds", monday(9, 0).Add(time.Second), monday(7, 0), monday(10, 0)},
		{"clamps to now", monday(8, 0), monday(10, 0), monday(10, 0)},
		{"clamps to now then rounds", monday(8, 0), monday(10, 20), monday(11, 0)},
		{"rounding lands in lunch", monday(11, 30), monday(7, 0), monday(14, 0)},
		{"rounding lands after hours", monday(16, 30), monday(7, 0), day(1, 8, 0)},
		{"before morning", monday(7, 0), monday(7, 0), monday(8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.NextWorkStart(tt.t, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextWorkStart(%v, %v) = %v, want %v", tt.t, tt.now, got, tt.want)
			}
		})
	}
}

func TestAddWorkHours(t *testing.T) {
	c := testCalendar(t)

	tests := []struct {
		name  string
		start time.Time
		hours float64
		want  time.Time
	}{
		{"fits in morning", monday(8, 0), 1, monday(9, 0)},
		{"fills morning exactly", monday(8, 0), 4, monday(12, 0)},
		{"splits across lunch", monday(8, 0), 5, monday(15, 0)},
		{"rolls overnight", monday(16, 0), 2, day(1, 9, 0)},
		{"full day", monday(8, 0), 7, monday(17, 0)},
		{"full day plus one", monday(8, 0), 8, day(1, 9, 0)},
		{"multi day", monday(8, 0), 15, day(2, 9, 0)},
		{"fractional", monday(8, 0), 1.5, monday(9, 30)},
		{"fractional across lunch", monday(11, 0), 1.25, monday(14, 15)},
		{"zero hours", monday(10, 0), 0, monday(10, 0)},
		{"negative hours", monday(10, 0), -3, monday(10, 0)},
		{"start before morning", monday(6, 0), 2, monday(10, 0)},
		{"start at lunch", monday(12, 0), 1, monday(15, 0)},
		{"start after hours", monday(18, 0), 1, day(1, 9, 0)},
		{"friday rolls to saturday", day(4, 16, 0), 2, day(5, 9, 0)},
		{"two full days", monday(8, 0), 14, day(1, 17, 0)},
		{"ten days from mid morning", monday(10, 0), 70, day(10, 10, 0)},
		{"days plus fraction", monday(10, 0), 15.5, day(2, 11, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AddWorkHours(tt.start, tt.hours)
			if !got.Equal(tt.want) {
				t.Errorf("AddWorkHours(%v, %v) = %v, want %v", tt.start, tt.hours, got, tt.want)
			}
		})
	}
}

func TestAddWorkHoursNonFinite(t *testing.T) {
	c := testCalendar(t)
	for _, h := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := c.AddWorkHours(monday(9, 0), h); !got.Equal(monday(9, 0)) {
			t.Errorf("AddWorkHours(%v) = %v, want aligned start", h, got)
		}
	}
}

func TestAddWorkHoursLargeAmounts(t *testing.T) {
	c := testCalendar(t)

	done := make(chan time.Time, 1)
	go func() { done <- c.AddWorkHours(monday(8, 0), 7e6) }()

	select {
	case got := <-done:
		// A million full days from Monday 08:00 ends at 17:00 on the last one.
		if want := day(999999, 17, 0); !got.Equal(want) {
			t.Errorf("AddWorkHours(7e6) = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AddWorkHours(7e6) did not return")
	}
}

func TestAddWorkHoursMatchesWorkHoursBetween(t *testing.T) {
	c := testCalendar(t)
	starts := []time.Time{monday(8, 0), monday(11, 0), monday(14, 0), monday(16, 0)}
	for _, start := range starts {
		for _, hours := range []float64{0.5, 1, 3, 4, 5, 7, 9.25, 20} {
			end := c.AddWorkHours(start, hours)
			got := c.WorkHoursBetween(start, end)
			if math.Abs(got-hours) > 1e-9 {
				t.Errorf("WorkHoursBetween(%v, %v) = %v, want %v", start, end, got, hours)
			}
		}
	}
}

func TestBlocks(t *testing.T) {
	c := testCalendar(t)

	blocks := c.Blocks(monday(8, 0), monday(15, 0))
	want := []Block{
		{Start: monday(8, 0), End: monday(12, 0)},
		{Start: monday(14, 0), End: monday(15, 0)},
	}
	if len(blocks) != len(want) {
		t.Fatalf("Blocks() returned %d blocks, want %d: %v", len(blocks), len(want), blocks)
	}
	for i := range want {
		if !blocks[i].Start.Equal(want[i].Start) || !blocks[i].End.Equal(want[i].End) {
			t.Errorf("block %d = %v-%v, want %v-%v", i, blocks[i].Start, blocks[i].End, want[i].Start, want[i].End)
		}
	}

	overnight := c.Blocks(monday(16, 0), day(1, 9, 0))
	if len(overnight) != 2 {
		t.Fatalf("overnight Blocks() = %v, want 2 blocks", overnight)
	}
	if overnight[0].Hours() != 1 || overnight[1].Hours() != 1 {
		t.Errorf("overnight block hours = %v, %v; want 1, 1", overnight[0].Hours(), overnight[1].Hours())
	}

	if got := c.Blocks(monday(10, 0), monday(10, 0)); len(got) != 0 {
		t.Errorf("empty interval Blocks() = %v, want none", got)
	}
}

func TestCalendarInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	c, err := New(DefaultWindows(), loc)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// 05:00 UTC is 07:00 local, so work starts at 08:00 local (06:00 UTC).
	got := c.NextWorkStart(monday(5, 0), monday(5, 0))
	want := time.Date(2024, time.January, 8, 8, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("NextWorkStart() = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("NextWorkStart() location = %v, want %v", got.Location(), loc)
	}
}

func TestCalendarHalfHourOffset(t *testing.T) {
	loc := time.FixedZone("IST", 5*60*60+30*60)
	c := MustNew(DefaultWindows(), loc)

	start := time.Date(2024, time.January, 8, 9, 0, 0, 0, loc)
	got := c.AlignToBusiness(start)
	if !got.Equal(start) {
		t.Errorf("AlignToBusiness(%v) = %v, want unchanged", start, got)
	}
}
