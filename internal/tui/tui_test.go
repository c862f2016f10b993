package tui

import (
	"context"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/source"
	"classgrid/internal/store"
)

func TestMain(m *testing.M) {
	appLog.Use(zap.NewNop())
	os.Exit(m.Run())
}

type fakeLoader struct{ ds source.Dataset }

func (l fakeLoader) Load(context.Context) (source.Dataset, error) { return l.ds, nil }

func loadedStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(fakeLoader{ds: source.Dataset{
		LastUpdated: "June 3",
		Rows: []model.RawRow{
			{"Class": "Fundamentals", "Discipline(s)": "Adult Brazilian Jiu Jitsu", "Day": "Monday", "Time": "6:45 AM", "Location": "Strip District", "Details": "Bring a gi"},
			{"Class": "Kickboxing", "Discipline(s)": "Adult Striking", "Day": "Tuesday", "Time": "6:00 PM", "Location": "Strip District", "Apparel Format": "No Gi"},
			{"Class": "Open Mat", "Discipline(s)": "Adult Brazilian Jiu Jitsu", "Day": "Saturday", "Time": "11:00 AM", "Location": "Lawrenceville"},
		},
	}}, store.Options{PreferredLocation: "Strip District", WeekStart: "monday"})
	require.NoError(t, st.Reload(context.Background()))
	return st
}

func sampleWeek() schedule.Week {
	e := schedule.NewEngine(nil, nil)
	f := schedule.NewFilterState()
	f.Initialize([]string{"Strip District"}, "Strip District")
	sessions := []model.Session{
		{ID: "1", ClassName: "Fundamentals", Day: model.Monday, TimeMinutes: 405, TimeDisplay: "6:45 AM", Location: "Strip District", Style: "bjj", Details: "Bring a gi"},
		{ID: "2", ClassName: "Kickboxing", Day: model.Tuesday, TimeMinutes: 1080, TimeDisplay: "6:00 PM", Location: "Strip District", Style: "striking"},
	}
	return e.Assemble(sessions, f, "monday")
}

func TestRenderMobileStacksDays(t *testing.T) {
	out := Render(sampleWeek(), RenderOptions{Layout: schedule.LayoutMobile, Width: 60})

	mon := strings.Index(out, "Monday")
	tue := strings.Index(out, "Tuesday")
	require.GreaterOrEqual(t, mon, 0)
	require.Greater(t, tue, mon)
	// Stacked: Tuesday starts on a later line than Fundamentals.
	assert.Greater(t, tue, strings.Index(out, "Fundamentals"))
	assert.Equal(t, 5, strings.Count(out, NoClasses))
	assert.NotContains(t, out, "Bring a gi")
}

func TestRenderDesktopPutsDaysSideBySide(t *testing.T) {
	out := Render(sampleWeek(), RenderOptions{Layout: schedule.LayoutDesktop, Width: 175})
	firstLine := strings.SplitN(out, "\n", 2)[0]
	for _, d := range model.Days {
		assert.Contains(t, firstLine, string(d))
	}
}

func TestRenderExpandShowsDetails(t *testing.T) {
	out := Render(sampleWeek(), RenderOptions{Layout: schedule.LayoutMobile, Expand: true})
	assert.Contains(t, out, "Bring a gi")
}

func TestModelResizeSwitchesLayout(t *testing.T) {
	m := New(loadedStore(t), 100)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, schedule.LayoutDesktop, m.tracker.Applied())
	assert.Equal(t, "layout: desktop", m.status)

	m.status = ""
	next, _ = m.Update(tea.WindowSizeMsg{Width: 110, Height: 40})
	m = next.(Model)
	assert.Empty(t, m.status, "no crossing, no re-layout")

	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = next.(Model)
	assert.Equal(t, schedule.LayoutMobile, m.tracker.Applied())
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModelKeysDriveFilters(t *testing.T) {
	st := loadedStore(t)
	m := New(st, 0)

	// Cursor starts on Strip District; move to Lawrenceville and toggle it.
	m = press(m, "down", "space")
	assert.Equal(t, []string{"Strip District", "Lawrenceville"}, st.Snapshot().Filters.SelectedLocations())

	m = press(m, "a")
	assert.Equal(t, schedule.ApparelGiOnly, st.Snapshot().Filters.Apparel())
	m = press(m, "a")
	assert.Equal(t, schedule.ApparelNoGiOnly, st.Snapshot().Filters.Apparel())

	m = press(m, "b")
	assert.Equal(t, schedule.LevelBeginnerOnly, st.Snapshot().Filters.Level())

	m = press(m, "t")
	assert.Equal(t, schedule.TimeRange{Start: 0, End: 720}, st.Snapshot().Filters.TimeRange())

	m = press(m, "c")
	f := st.Snapshot().Filters
	assert.Equal(t, []string{"Strip District"}, f.SelectedLocations())
	assert.Equal(t, schedule.ApparelAny, f.Apparel())
	assert.Equal(t, schedule.FullDay, f.TimeRange())

	m = press(m, "e")
	assert.True(t, m.expand)
}

func TestModelLastLocationStaysSelected(t *testing.T) {
	st := loadedStore(t)
	m := New(st, 0)
	m = press(m, "space")
	assert.Equal(t, []string{"Strip District"}, st.Snapshot().Filters.SelectedLocations())
	assert.Equal(t, string(schedule.EventToggleLocation), m.status)
}

func TestModelView(t *testing.T) {
	m := New(loadedStore(t), 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	view := next.(Model).View()

	assert.Contains(t, view, "Class Schedule")
	assert.Contains(t, view, "Showing 2 of 3 classes")
	assert.Contains(t, view, "Last updated: June 3")
	assert.Contains(t, view, "Fundamentals")
	assert.NotContains(t, view, "Open Mat")
}

func TestModelReloadCmd(t *testing.T) {
	m := New(loadedStore(t), 0)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	msg := cmd()
	next, _ = next.Update(msg)
	assert.Equal(t, "reloaded", next.(Model).status)
}
