package ics

import (
	"os"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
)

func TestMain(m *testing.M) {
	appLog.Use(zap.NewNop())
	os.Exit(m.Run())
}

func weekly(id, name string, day model.Weekday, minutes int) model.Session {
	return model.Session{
		ID:          id,
		ClassName:   name,
		Discipline:  "Adult Brazilian Jiu Jitsu",
		Day:         day,
		TimeMinutes: minutes,
		Location:    "Strip District",
		Category:    "Adult BJJ",
	}
}

func TestExport(t *testing.T) {
	// Wednesday 2024-06-05.
	anchor := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	sessions := []model.Session{
		weekly("a", "Fundamentals", model.Monday, 18*60),
		weekly("b", "Open Mat", model.Saturday, 11*60),
		weekly("c", "Mystery", model.UnknownDay, 0),
	}

	out, err := Export(sessions, ExportOptions{Location: time.UTC, Anchor: anchor, Duration: 90 * time.Minute})
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2, "sessions without a day are skipped")

	first := events[0]
	assert.Equal(t, "a@classgrid", first.Id())
	assert.Equal(t, "Fundamentals", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Strip District", first.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", first.GetProperty(ical.ComponentPropertyRrule).Value)

	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC), start.UTC())
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, end.Sub(start))

	assert.Equal(t, "FREQ=WEEKLY;BYDAY=SA", events[1].GetProperty(ical.ComponentPropertyRrule).Value)
}

func TestExportWithTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	out, err := Export([]model.Session{weekly("a", "Fundamentals", model.Tuesday, 6*60+45)}, ExportOptions{
		Location: ny,
		Anchor:   time.Date(2024, 6, 5, 12, 0, 0, 0, ny),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "DTSTART;TZID=America/New_York:20240604T064500")
	assert.Contains(t, out, "X-WR-CALNAME:Class Schedule")

	// Every TZID used by an event is defined before the first event.
	tzAt := strings.Index(out, "BEGIN:VTIMEZONE")
	require.GreaterOrEqual(t, tzAt, 0)
	assert.Less(t, tzAt, strings.Index(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "TZID:America/New_York")
	assert.Contains(t, out, "BEGIN:DAYLIGHT")
	assert.Contains(t, out, "BEGIN:STANDARD")
	assert.Contains(t, out, "TZOFFSETFROM:-0500")
	assert.Contains(t, out, "TZOFFSETTO:-0400")
	// 2024 spring-forward happens at 2:00 local standard time.
	assert.Contains(t, out, "DTSTART:20240310T020000")
}

func TestTimezoneBlocks(t *testing.T) {
	out, err := Export([]model.Session{weekly("a", "Fundamentals", model.Monday, 600)}, ExportOptions{
		Location: time.FixedZone("KST", 9*60*60),
		Anchor:   time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VTIMEZONE"))
	assert.Equal(t, 1, strings.Count(out, "BEGIN:STANDARD"))
	assert.NotContains(t, out, "BEGIN:DAYLIGHT")
	assert.Contains(t, out, "TZOFFSETTO:+0900")

	utc, err := Export([]model.Session{weekly("a", "Fundamentals", model.Monday, 600)}, ExportOptions{Location: time.UTC})
	require.NoError(t, err)
	assert.NotContains(t, utc, "BEGIN:VTIMEZONE")
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+0000", formatOffset(0))
	assert.Equal(t, "-0500", formatOffset(-5*3600))
	assert.Equal(t, "+0530", formatOffset(5*3600+30*60))
	assert.Equal(t, "-001915", formatOffset(-(19*60 + 15)))
}

func TestExportOnlyUnknownDays(t *testing.T) {
	_, err := Export([]model.Session{weekly("x", "x", model.UnknownDay, 0)}, ExportOptions{})
	assert.Error(t, err)

	out, err := Export(nil, ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
}

func TestUpcoming(t *testing.T) {
	// Wednesday 2024-06-05 12:00.
	from := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	sessions := []model.Session{
		weekly("mon", "Monday class", model.Monday, 18*60),
		weekly("wed-am", "Wednesday morning", model.Wednesday, 7*60),
		weekly("wed-pm", "Wednesday evening", model.Wednesday, 19*60),
		weekly("none", "No day", model.UnknownDay, 0),
	}

	got := Upcoming(sessions, from, 4, time.UTC, 0)
	require.Len(t, got, 4)

	want := []struct {
		id    string
		start time.Time
	}{
		{"wed-pm", time.Date(2024, 6, 5, 19, 0, 0, 0, time.UTC)},
		{"mon", time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)},
		{"wed-am", time.Date(2024, 6, 12, 7, 0, 0, 0, time.UTC)},
		{"wed-pm", time.Date(2024, 6, 12, 19, 0, 0, 0, time.UTC)},
	}
	for i, w := range want {
		assert.Equal(t, w.id, got[i].Session.ID, "occurrence %d", i)
		assert.True(t, w.start.Equal(got[i].Start), "occurrence %d: %s", i, got[i].Start)
		assert.Equal(t, time.Hour, got[i].End.Sub(got[i].Start))
	}
}

func TestUpcomingEdges(t *testing.T) {
	from := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	s := []model.Session{weekly("a", "a", model.Friday, 600)}

	assert.Empty(t, Upcoming(s, from, 0, nil, 0))
	assert.Empty(t, Upcoming(nil, from, 5, nil, 0))
	assert.Len(t, Upcoming(s, from, 3, time.UTC, 0), 3, "a single weekly session still fills the count")
	assert.Len(t, Upcoming(s, from, 1000, time.UTC, 0), MaxUpcoming)
}

func TestWeekMonday(t *testing.T) {
	sun := time.Date(2024, 6, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), weekMonday(sun, time.UTC))
	mon := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, weekMonday(mon, time.UTC))
}
