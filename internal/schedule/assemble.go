package schedule

import (
	"sort"

	"classgrid/internal/model"
)

// DayGroup is one day's visible sessions in display order.
type DayGroup struct {
	Day      model.Weekday   `json:"day"`
	Sessions []model.Session `json:"sessions"`
}

// Week is the assembler output. It does not depend on layout; renderers
// decide whether days become columns or stacked sections.
type Week struct {
	Days []DayGroup `json:"days"`
	// Visible counts every session passing the filters, including sessions
	// whose day is unknown and therefore appear in no group.
	Visible int `json:"visible"`
	Total   int `json:"total"`
}

// ByDay returns the groups keyed by weekday.
func (w Week) ByDay() map[model.Weekday][]model.Session {
	out := make(map[model.Weekday][]model.Session, len(w.Days))
	for _, g := range w.Days {
		out[g.Day] = g.Sessions
	}
	return out
}

// Assemble filters sessions and groups them by day. Every canonical weekday
// gets a group, possibly empty, in the order given by weekStart. Within a day
// sessions are sorted by TimeMinutes; equal times keep their input order.
//
// Assemble recomputes everything on each call and tolerates an empty input.
func (e *Engine) Assemble(sessions []model.Session, f *FilterState, weekStart string) Week {
	order := model.WeekOrder(weekStart)
	buckets := make(map[model.Weekday][]model.Session, len(order))

	w := Week{Total: len(sessions)}
	for _, s := range sessions {
		if !e.IsVisible(s, f) {
			continue
		}
		w.Visible++
		if !s.Day.Canonical() {
			continue
		}
		buckets[s.Day] = append(buckets[s.Day], s)
	}

	w.Days = make([]DayGroup, 0, len(order))
	for _, d := range order {
		list := buckets[d]
		if list == nil {
			list = []model.Session{}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].TimeMinutes < list[j].TimeMinutes
		})
		w.Days = append(w.Days, DayGroup{Day: d, Sessions: list})
	}
	return w
}
