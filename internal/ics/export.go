package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
)

const (
	defaultProductID = "-//classgrid//weekly schedule//EN"
	defaultCalName   = "Class Schedule"
	localTimeLayout  = "20060102T150405"
)

// ExportOptions controls calendar generation.
type ExportOptions struct {
	// Location is the timezone events are anchored in. Nil means time.Local.
	Location *time.Location
	// Duration of each event. Zero means one hour.
	Duration time.Duration
	// Anchor picks the week whose dates seed DTSTART. Zero means now.
	Anchor time.Time
	// Name is written as X-WR-CALNAME.
	Name      string
	ProductID string
}

func (o ExportOptions) normalized() ExportOptions {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Duration <= 0 {
		o.Duration = time.Hour
	}
	if o.Anchor.IsZero() {
		o.Anchor = time.Now()
	}
	if o.Name == "" {
		o.Name = defaultCalName
	}
	if o.ProductID == "" {
		o.ProductID = defaultProductID
	}
	return o
}

// Export renders sessions as a weekly-recurring iCalendar document. Sessions
// without a recognizable day cannot recur and are skipped.
func Export(sessions []model.Session, opts ExportOptions) (string, error) {
	opts = opts.normalized()
	tzid := opts.Location.String()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	cal.SetXWRCalName(opts.Name)
	if tzid != "Local" {
		cal.SetXWRTimezone(tzid)
	}
	if tzid != "Local" && tzid != "UTC" {
		cal.Components = append(cal.Components, newTimezone(opts.Location, opts.Anchor))
	}

	stamp := time.Now().UTC()
	skipped := 0
	for _, s := range sessions {
		start, ok := firstStart(s, opts.Anchor, opts.Location)
		if !ok {
			skipped++
			continue
		}
		end := start.Add(opts.Duration)

		ev := cal.AddEvent(s.ID + "@classgrid")
		ev.SetDtStampTime(stamp)
		if tzid == "Local" || tzid == "UTC" {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		} else {
			tz := &ical.KeyValues{Key: "TZID", Value: []string{tzid}}
			ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(localTimeLayout), tz)
			ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localTimeLayout), tz)
		}
		ev.AddRrule("FREQ=WEEKLY;BYDAY=" + dayCode(s.Day))
		ev.SetSummary(s.ClassName)
		ev.SetLocation(s.Location)
		if desc := describe(s); desc != "" {
			ev.SetDescription(desc)
		}
		if s.Category != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, string(s.Category))
		}
	}

	if len(cal.Events()) == 0 && len(sessions) > 0 {
		return "", errors.New("ics: no session has a recognizable day")
	}
	if skipped > 0 {
		appLog.Debug("ics export skipped sessions without a day", "count", skipped)
	}
	return cal.Serialize(), nil
}

func describe(s model.Session) string {
	parts := make([]string, 0, 4)
	if s.Discipline != "" {
		parts = append(parts, s.Discipline)
	}
	if s.Apparel != "" {
		parts = append(parts, "Apparel: "+s.Apparel)
	}
	if s.Details != "" {
		parts = append(parts, s.Details)
	}
	if s.Requisites != "" {
		parts = append(parts, "Requisites: "+s.Requisites)
	}
	return strings.Join(parts, "\n")
}

// dayOffset is the distance from Monday.
var dayOffset = map[model.Weekday]int{
	model.Monday:    0,
	model.Tuesday:   1,
	model.Wednesday: 2,
	model.Thursday:  3,
	model.Friday:    4,
	model.Saturday:  5,
	model.Sunday:    6,
}

func dayCode(d model.Weekday) string {
	return strings.ToUpper(string(d)[:2])
}

// weekMonday returns midnight of the Monday on or before t, in loc.
func weekMonday(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	back := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -back)
}

// firstStart places s in the week containing anchor.
func firstStart(s model.Session, anchor time.Time, loc *time.Location) (time.Time, bool) {
	off, ok := dayOffset[s.Day]
	if !ok {
		return time.Time{}, false
	}
	m := weekMonday(anchor, loc)
	return time.Date(m.Year(), m.Month(), m.Day()+off, 0, s.TimeMinutes, 0, 0, loc), true
}

// LoadLocation resolves an IANA name, falling back to time.Local.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Warn("unknown timezone; using local", "timezone", name, "err", fmt.Sprint(err))
		return time.Local
	}
	return loc
}
