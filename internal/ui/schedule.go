package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/taskcal/internal/scheduler"
)

const dayLayout = "Mon 2006-01-02"

// WriteSchedule prints a schedule grouped by day. Colors are used only when w
// is a terminal.
func WriteSchedule(w io.Writer, result *scheduler.Result) error {
	_, err := io.WriteString(w, formatSchedule(result, IsTTY(w)))
	return err
}

func formatSchedule(result *scheduler.Result, styled bool) string {
	render := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	var b strings.Builder
	if result == nil || len(result.Tasks) == 0 {
		b.WriteString("No tasks scheduled.\n")
		if result == nil {
			return b.String()
		}
	}

	var day string
	for _, t := range result.Tasks {
		if d := t.Start.Format(dayLayout); d != day {
			if day != "" {
				b.WriteString("\n")
			}
			day = d
			b.WriteString(render(dayStyle, d))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %s  %6s  %s", render(timeStyle, spanLabel(t.Start, t.End)), hoursLabel(t.Duration), t.Name)
		if len(t.DependsOn) > 0 {
			b.WriteString(render(dimStyle, " (after "+strings.Join(t.DependsOn, ", ")+")"))
		}
		b.WriteString("\n")
	}

	if len(result.Dropped) > 0 {
		b.WriteString("\n")
		b.WriteString(render(warnStyle, fmt.Sprintf("Not scheduled (%d over the per-run limit):", len(result.Dropped))))
		b.WriteString("\n")
		for _, s := range result.Dropped {
			fmt.Fprintf(&b, "  - %s\n", s.Name)
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(render(warnStyle, "Warnings:"))
		b.WriteString("\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w.String())
		}
	}

	if !result.NextStart.IsZero() {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Next start: %s\n", result.NextStart.Format("Mon 2006-01-02 15:04 MST"))
	}
	return b.String()
}

func spanLabel(start, end time.Time) string {
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return start.Format("15:04") + "-" + end.Format("15:04")
	}
	return start.Format("15:04") + "-" + end.Format("Mon 15:04")
}

func hoursLabel(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64) + "h"
}
