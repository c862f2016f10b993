package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
)

// MaxUpcoming caps how many occurrences one call may return.
const MaxUpcoming = 100

// Occurrence is one dated instance of a weekly session.
type Occurrence struct {
	Session model.Session `json:"session"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
}

// Upcoming returns the next count occurrences of the given sessions that
// start at or after from, ordered by start time. Sessions without a
// recognizable day never occur.
func Upcoming(sessions []model.Session, from time.Time, count int, loc *time.Location, dur time.Duration) []Occurrence {
	if count <= 0 || len(sessions) == 0 {
		return []Occurrence{}
	}
	if count > MaxUpcoming {
		count = MaxUpcoming
	}
	if loc == nil {
		loc = time.Local
	}
	if dur <= 0 {
		dur = time.Hour
	}
	from = from.In(loc)
	// One weekly session needs count weeks to yield count occurrences.
	until := from.AddDate(0, 0, 7*count)

	out := make([]Occurrence, 0, count)
	for _, s := range sessions {
		first, ok := firstStart(s, from, loc)
		if !ok {
			continue
		}
		r, err := rrule.StrToRRule("FREQ=WEEKLY;BYDAY=" + dayCode(s.Day))
		if err != nil {
			appLog.Error("upcoming: failed to build weekly rule", err, "session", s.ID)
			continue
		}
		r.DTStart(first)

		for _, start := range r.Between(from, until, true) {
			out = append(out, Occurrence{Session: s, Start: start, End: start.Add(dur)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	if len(out) > count {
		out = out[:count]
	}
	return out
}
