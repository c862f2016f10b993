package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a normalized time value.
type TimeOfDay struct {
	// Minutes since midnight, always in [0, 1439].
	Minutes int
	// Display is "H:MM AM/PM" for parsed values and the original text for
	// strings that could not be parsed.
	Display string
}

var (
	// 12-hour clock with a marker: "6:45 AM", "7pm", "12:00:00 PM". Anything
	// after the marker (e.g. " - 7:45 AM") is residue.
	twelveHourRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?(?::(\d{2}))?\s*(AM|PM)\b(.*)$`)
	// 24-hour clock: "18:30", "07:05:00". Residue after the clock
	// ("18:30 - 19:30") is kept for display only.
	twentyFourHourRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2}))?\b(.*)$`)
)

// NormalizeTime collapses the raw time shapes found in schedule sources into a
// TimeOfDay. It never fails: input it cannot make sense of yields Minutes 0.
//
//   - nil / empty               -> {0, ""}
//   - time.Time                 -> wall-clock hour and minute, no zone conversion
//   - float / int / json.Number -> fraction of a day (spreadsheet serial)
//   - "H:MM[:SS] AM|PM"         -> 12-hour clock
//   - "H:MM[:SS]"               -> 24-hour clock
func NormalizeTime(raw any) TimeOfDay {
	switch v := raw.(type) {
	case nil:
		return TimeOfDay{}
	case time.Time:
		if v.IsZero() {
			return TimeOfDay{}
		}
		return clock(v.Hour(), v.Minute())
	case *time.Time:
		if v == nil {
			return TimeOfDay{}
		}
		return NormalizeTime(*v)
	case float64:
		return fromSerial(v)
	case float32:
		return fromSerial(float64(v))
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return normalizeTimeString(v.String())
		}
		return fromSerial(f)
	case string:
		return normalizeTimeString(v)
	default:
		return normalizeTimeString(fmt.Sprint(v))
	}
}

// fromSerial interprets f as a fraction of a day. Whole days (the date part
// of a full spreadsheet date-time serial) are discarded.
func fromSerial(f float64) TimeOfDay {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return TimeOfDay{}
	}
	totalSeconds := int64(math.Round(f * 86400))
	secs := totalSeconds % 86400
	if secs < 0 {
		secs += 86400
	}
	hours := int(secs / 3600)
	minutes := int((secs % 3600) / 60)
	return clock(hours, minutes)
}

func normalizeTimeString(s string) TimeOfDay {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TimeOfDay{}
	}

	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, "AM") || strings.Contains(upper, "PM") {
		m := twelveHourRe.FindStringSubmatch(trimmed)
		if m == nil {
			return TimeOfDay{Display: s}
		}
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 23 || minute > 59 {
			return TimeOfDay{Display: s}
		}
		pm := strings.EqualFold(m[4], "PM")
		if hour == 12 {
			hour = 0
		}
		if pm && hour < 12 {
			hour += 12
		}
		out := clock(hour, minute)
		if strings.TrimSpace(m[5]) != "" {
			// "6:45 AM - 7:45 AM": sort by the start, show what the source said.
			out.Display = trimmed
		}
		return out
	}

	if m := twentyFourHourRe.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return TimeOfDay{Display: s}
		}
		out := clock(hour, minute)
		if strings.TrimSpace(m[4]) != "" {
			out.Display = trimmed
		}
		return out
	}

	return TimeOfDay{Display: s}
}

// clock builds a TimeOfDay from a valid 24-hour hour and minute.
func clock(hour, minute int) TimeOfDay {
	return TimeOfDay{
		Minutes: hour*60 + minute,
		Display: FormatMinutes(hour*60 + minute),
	}
}

// FormatMinutes renders minutes since midnight as "H:MM AM/PM". Values outside
// a day wrap around.
func FormatMinutes(minutes int) string {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	hour := minutes / 60
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minutes%60, ampm)
}

// ParseClock parses a user-entered bound such as "13:00", "1 PM" or "1440"
// (plain minutes) into minutes since midnight. "24:00" is accepted as 1440 so
// a range can cover the whole day.
func ParseClock(s string) (int, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, fmt.Errorf("schedule: empty time")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > minutesPerDay {
			return 0, fmt.Errorf("schedule: minutes %d out of range", n)
		}
		return n, nil
	}
	if v == "24:00" {
		return minutesPerDay, nil
	}
	upper := strings.ToUpper(v)
	if !strings.Contains(upper, "AM") && !strings.Contains(upper, "PM") {
		if m := twentyFourHourRe.FindStringSubmatch(v); m == nil || strings.TrimSpace(m[4]) != "" {
			return 0, fmt.Errorf("schedule: unrecognized time %q", s)
		}
	}
	t := normalizeTimeString(v)
	if t.Minutes == 0 && !isMidnight(v) {
		return 0, fmt.Errorf("schedule: unrecognized time %q", s)
	}
	return t.Minutes, nil
}

func isMidnight(s string) bool {
	m := twelveHourRe.FindStringSubmatch(s)
	if m != nil {
		return (m[1] == "12" || m[1] == "0" || m[1] == "00") && (m[2] == "" || m[2] == "00") && strings.EqualFold(m[4], "AM")
	}
	m = twentyFourHourRe.FindStringSubmatch(s)
	return m != nil && (m[1] == "0" || m[1] == "00") && m[2] == "00"
}
