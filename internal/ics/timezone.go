package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// timezoneYears is how far past the anchor year transitions are listed.
// Clients keep applying the last observance after that.
const timezoneYears = 10

// newTimezone describes loc as a VTIMEZONE. Go exposes no recurrence rules
// for zones, so every offset change from the year before anchor through
// timezoneYears is written as its own observance.
func newTimezone(loc *time.Location, anchor time.Time) *ical.VTimezone {
	tz := &ical.VTimezone{}
	tz.SetProperty(ical.ComponentPropertyTzid, loc.String())

	from := time.Date(anchor.In(loc).Year()-1, time.January, 1, 0, 0, 0, 0, loc)
	until := from.AddDate(timezoneYears+1, 0, 0)

	// The zone in effect at the start of the window.
	name, offset := from.Zone()
	start, _ := from.ZoneBounds()
	if start.IsZero() || start.After(from) {
		start = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	tz.Components = append(tz.Components, observance(from.IsDST(), name, offset, offset, start.In(time.FixedZone("", offset))))

	for t := from; t.Before(until); {
		_, end := t.ZoneBounds()
		if end.IsZero() || !end.Before(until) {
			break
		}
		_, prevOffset := end.Add(-time.Second).Zone()
		next := end.In(loc)
		nextName, nextOffset := next.Zone()
		tz.Components = append(tz.Components,
			observance(next.IsDST(), nextName, prevOffset, nextOffset, end.In(time.FixedZone("", prevOffset))))
		t = next
	}
	return tz
}

// observance builds one STANDARD or DAYLIGHT block. onset is the wall
// clock of the change in the offset that was in effect before it.
func observance(dst bool, name string, from, to int, onset time.Time) ical.Component {
	var c ical.Component
	var base *ical.ComponentBase
	if dst {
		d := &ical.Daylight{}
		c, base = d, &d.ComponentBase
	} else {
		s := &ical.Standard{}
		c, base = s, &s.ComponentBase
	}
	base.SetProperty(ical.ComponentPropertyDtStart, onset.Format(localTimeLayout))
	base.SetProperty(ical.ComponentProperty("TZOFFSETFROM"), formatOffset(from))
	base.SetProperty(ical.ComponentProperty("TZOFFSETTO"), formatOffset(to))
	if name != "" {
		base.SetProperty(ical.ComponentProperty("TZNAME"), name)
	}
	return c
}

// formatOffset renders seconds east of UTC as "+HHMM" (or "+HHMMSS").
func formatOffset(sec int) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	h, m, s := sec/3600, sec%3600/60, sec%60
	if s != 0 {
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}
