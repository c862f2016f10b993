package model

import "strings"

// RawRow is a single row as produced by a data-source reader: column name to
// raw cell value (string, float64, int, time.Time, json.Number or nil).
// Readers make no promises about which columns are present.
type RawRow map[string]any

// ProgramCategory is a user-facing grouping such as "Adult BJJ". The empty
// value means "no category".
type ProgramCategory string

// Weekday is a canonical weekday name.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"

	// UnknownDay marks a session whose day could not be recognized. Such
	// sessions never appear in day-bucketed output.
	UnknownDay Weekday = "Unknown"
)

// Days lists the canonical weekdays, Monday first.
var Days = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday maps a full weekday name or a prefix of at least three letters
// ("mon", "Tues", "THURS") to its canonical name, case-insensitively.
func ParseWeekday(s string) Weekday {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, ".")
	if len(v) < 3 {
		return UnknownDay
	}
	for _, d := range Days {
		if strings.HasPrefix(strings.ToLower(string(d)), v) {
			return d
		}
	}
	return UnknownDay
}

// Canonical reports whether d is one of the seven weekday names.
func (d Weekday) Canonical() bool {
	for _, c := range Days {
		if d == c {
			return true
		}
	}
	return false
}

// WeekOrder returns the seven weekdays starting from the configured first day
// of the week ("monday" or "sunday").
func WeekOrder(weekStart string) []Weekday {
	out := make([]Weekday, 0, len(Days))
	if strings.EqualFold(weekStart, "sunday") {
		out = append(out, Sunday)
		return append(out, Days[:6]...)
	}
	return append(out, Days...)
}

// Session is one scheduled class occurrence, canonicalized from a RawRow.
// Sessions are treated as immutable values; reloading data produces a new
// slice rather than editing existing records.
type Session struct {
	// ID is deterministic for a given row content and position.
	ID string `json:"id"`

	ClassName  string  `json:"class_name"`
	Discipline string  `json:"discipline"`
	Day        Weekday `json:"day"`

	// TimeMinutes is minutes since midnight in [0, 1439], the sort key.
	TimeMinutes int `json:"time_minutes"`
	// TimeDisplay is "H:MM AM/PM", or the original text when it could not
	// be parsed.
	TimeDisplay string `json:"time_display"`

	Location   string `json:"location"`
	Apparel    string `json:"apparel"`
	Details    string `json:"details"`
	Requisites string `json:"requisites"`

	// Category is derived from Discipline; empty when nothing matched.
	Category ProgramCategory `json:"category,omitempty"`
	// Style is the display tag paired with Category (e.g. "bjj").
	Style string `json:"style,omitempty"`
}
