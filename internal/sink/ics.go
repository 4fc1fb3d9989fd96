package sink

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/nibzard/taskcal/internal/calendar"
)

const (
	icsProdID   = "-//nibzard//taskcal//EN"
	icsDateTime = "20060102T150405"
)

// ICSSink writes an iCalendar (RFC 5545) document.
type ICSSink struct {
	out output
	cal *calendar.Calendar
	now func() time.Time
}

// Publish writes one VEVENT per event, or one per work block when the sink
// has a calendar.
func (s *ICSSink) Publish(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.out.write([]byte(RenderICS(events, s.cal, s.now())))
}

// icsEntry is one VEVENT before rendering.
type icsEntry struct {
	event   Event
	uid     string
	summary string
	block   calendar.Block
}

// RenderICS renders events as an iCalendar document. With a non-nil cal,
// events spanning breaks are split into one VEVENT per work block. Every
// named zone used by an event gets a VTIMEZONE covering the event years.
func RenderICS(events []Event, cal *calendar.Calendar, stamp time.Time) string {
	doc := ics.NewCalendar()
	doc.SetProductId(icsProdID)
	doc.SetMethod(ics.MethodPublish)

	var entries []icsEntry
	for _, e := range events {
		blocks := []calendar.Block{{Start: e.Start, End: e.End}}
		if cal != nil {
			if split := cal.Blocks(e.Start, e.End); len(split) > 0 {
				blocks = split
			}
		}
		for i, block := range blocks {
			entry := icsEntry{event: e, uid: e.UID, summary: e.Summary(), block: block}
			if len(blocks) > 1 {
				entry.uid = fmt.Sprintf("%s-%d", e.UID, i+1)
				entry.summary = fmt.Sprintf("%s [%d/%d]", entry.summary, i+1, len(blocks))
			}
			entries = append(entries, entry)
		}
	}

	for _, z := range usedZones(entries) {
		addTimezone(doc, z.loc, z.first, z.last)
	}

	for _, entry := range entries {
		ev := doc.AddEvent(entry.uid + "@taskcal")
		ev.SetDtStampTime(stamp)
		setTime(ev, ics.ComponentPropertyDtStart, entry.block.Start)
		setTime(ev, ics.ComponentPropertyDtEnd, entry.block.End)
		ev.SetSummary(entry.summary)
		ev.SetDescription(entry.event.Description())
		if entry.event.Issue != nil && entry.event.Issue.URL != "" {
			ev.SetURL(entry.event.Issue.URL)
		}
	}

	return doc.Serialize()
}

// zoneName returns the TZID for t, or "" when t is written in UTC.
func zoneName(t time.Time) string {
	loc := t.Location()
	if loc == time.UTC || loc.String() == "" || loc.String() == "Local" || loc.String() == "UTC" {
		return ""
	}
	return loc.String()
}

// setTime writes UTC instants with a Z suffix and everything else as local
// time with a TZID parameter.
func setTime(ev *ics.VEvent, prop ics.ComponentProperty, t time.Time) {
	zone := zoneName(t)
	if zone == "" {
		ev.SetProperty(prop, t.UTC().Format(icsDateTime)+"Z")
		return
	}
	ev.SetProperty(prop, t.Format(icsDateTime), &ics.KeyValues{Key: "TZID", Value: []string{zone}})
}

type zoneSpan struct {
	loc         *time.Location
	first, last time.Time
}

// usedZones lists the named zones of entries in first-use order.
func usedZones(entries []icsEntry) []zoneSpan {
	var spans []zoneSpan
	index := make(map[string]int)
	for _, entry := range entries {
		for _, t := range []time.Time{entry.block.Start, entry.block.End} {
			name := zoneName(t)
			if name == "" {
				continue
			}
			i, ok := index[name]
			if !ok {
				index[name] = len(spans)
				spans = append(spans, zoneSpan{loc: t.Location(), first: t, last: t})
				continue
			}
			if t.Before(spans[i].first) {
				spans[i].first = t
			}
			if t.After(spans[i].last) {
				spans[i].last = t
			}
		}
	}
	return spans
}

// addTimezone appends a VTIMEZONE for loc with the observance in effect on
// January 1st of first's year and every offset change up to the end of
// last's year.
func addTimezone(doc *ics.Calendar, loc *time.Location, first, last time.Time) {
	tz := &ics.VTimezone{}
	tz.SetProperty(ics.ComponentProperty("TZID"), loc.String())

	t := time.Date(first.In(loc).Year(), time.January, 1, 0, 0, 0, 0, loc)
	name, offset := t.Zone()
	tz.Components = append(tz.Components, observance(t.IsDST(), t.Format(icsDateTime), offset, offset, name))

	lastYear := last.In(loc).Year()
	for {
		_, end := t.ZoneBounds()
		if end.IsZero() || end.Year() > lastYear {
			break
		}
		_, before := t.Zone()
		name, after := end.Zone()
		// DTSTART of an observance is the local time before the change.
		onset := end.In(time.FixedZone("", before)).Format(icsDateTime)
		tz.Components = append(tz.Components, observance(end.IsDST(), onset, before, after, name))
		t = end
	}

	doc.Components = append(doc.Components, tz)
}

func observance(dst bool, onset string, from, to int, name string) ics.Component {
	var (
		base *ics.ComponentBase
		c    ics.Component
	)
	if dst {
		d := &ics.Daylight{}
		base, c = &d.ComponentBase, d
	} else {
		s := &ics.Standard{}
		base, c = &s.ComponentBase, s
	}
	base.SetProperty(ics.ComponentPropertyDtStart, onset)
	base.SetProperty(ics.ComponentProperty("TZOFFSETFROM"), utcOffset(from))
	base.SetProperty(ics.ComponentProperty("TZOFFSETTO"), utcOffset(to))
	if name != "" {
		base.SetProperty(ics.ComponentProperty("TZNAME"), name)
	}
	return c
}

// utcOffset formats seconds east of UTC as +hhmm, or +hhmmss when needed.
func utcOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if s != 0 {
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}
