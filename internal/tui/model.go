package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/store"
)

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Apparel key.Binding
	Level   key.Binding
	Time    key.Binding
	Clear   key.Binding
	Expand  key.Binding
	Reload  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Apparel: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apparel")),
		Level:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "beginner")),
		Time:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "time of day")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		Expand:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "details")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Clear, k.Expand, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Apparel, k.Level, k.Time},
		{k.Clear, k.Expand, k.Reload},
		{k.Help, k.Quit},
	}
}

// ─── time presets ─────────────────────────────────────────────────────────────

type timePreset struct {
	label string
	r     schedule.TimeRange
}

var timePresets = []timePreset{
	{"All day", schedule.FullDay},
	{"Morning", schedule.TimeRange{Start: 0, End: 12 * 60}},
	{"Afternoon", schedule.TimeRange{Start: 12 * 60, End: 17 * 60}},
	{"Evening", schedule.TimeRange{Start: 17 * 60, End: 24 * 60}},
}

// ─── async messages ───────────────────────────────────────────────────────────

type reloadedMsg struct{ err error }

// ─── model ───────────────────────────────────────────────────────────────────

// facet is one selectable row in the filter list.
type facet struct {
	kind  schedule.EventKind
	value string
}

// Model is the Bubble Tea model for the interactive schedule.
type Model struct {
	store   *store.Store
	tracker *schedule.LayoutTracker
	keys    keyMap
	help    help.Model

	cursor   int
	preset   int
	expand   bool
	showHelp bool
	status   string
	width    int
	height   int
}

// New builds a Model. breakpoint is in terminal columns; zero means
// DefaultBreakpoint.
func New(st *store.Store, breakpoint int) Model {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return Model{
		store:   st,
		tracker: schedule.NewLayoutTracker(breakpoint),
		keys:    defaultKeys(),
		help:    help.New(),
		status:  "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) reloadCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return reloadedMsg{err: st.Reload(ctx)}
	}
}

// facets lists locations then programs, in display order.
func (m Model) facets(snap store.Snapshot) []facet {
	out := make([]facet, 0, len(snap.Locations)+len(snap.Programs))
	for _, loc := range snap.Locations {
		out = append(out, facet{kind: schedule.EventToggleLocation, value: loc})
	}
	for _, p := range snap.Programs {
		out = append(out, facet{kind: schedule.EventToggleProgram, value: string(p.Name)})
	}
	return out
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if layout, changed := m.tracker.Observe(msg.Width); changed {
			m.status = "layout: " + string(layout)
		}
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
		} else {
			m.status = "reloaded"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.store.Snapshot()
	facets := m.facets(snap)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(facets)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(facets) {
			f := facets[m.cursor]
			m.apply(schedule.Event{Kind: f.kind, Value: f.value})
		}
	case key.Matches(msg, m.keys.Apparel):
		next := map[schedule.ApparelFilter]schedule.ApparelFilter{
			schedule.ApparelAny:      schedule.ApparelGiOnly,
			schedule.ApparelGiOnly:   schedule.ApparelNoGiOnly,
			schedule.ApparelNoGiOnly: schedule.ApparelAny,
		}[snap.Filters.Apparel()]
		m.apply(schedule.Event{Kind: schedule.EventSetApparel, Value: string(next)})
	case key.Matches(msg, m.keys.Level):
		next := schedule.LevelBeginnerOnly
		if snap.Filters.Level() == schedule.LevelBeginnerOnly {
			next = schedule.LevelAny
		}
		m.apply(schedule.Event{Kind: schedule.EventSetLevel, Value: string(next)})
	case key.Matches(msg, m.keys.Time):
		m.preset = (m.preset + 1) % len(timePresets)
		p := timePresets[m.preset]
		m.apply(schedule.Event{Kind: schedule.EventSetTimeRange, Start: p.r.Start, End: p.r.End})
		m.status = "time: " + p.label
	case key.Matches(msg, m.keys.Clear):
		m.preset = 0
		m.apply(schedule.Event{Kind: schedule.EventClearAll})
	case key.Matches(msg, m.keys.Expand):
		m.expand = !m.expand
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading…"
		return m, m.reloadCmd()
	}
	return m, nil
}

func (m *Model) apply(ev schedule.Event) {
	if _, err := m.store.Apply(ev); err != nil {
		m.status = err.Error()
		return
	}
	m.status = string(ev.Kind)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	statusStyle   = mutedStyle
)

func (m Model) View() string {
	snap, week := m.store.Current()

	layout := m.tracker.Applied()
	if layout == "" {
		layout = schedule.LayoutMobile
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Class Schedule"),
		mutedStyle.Render(Summary(week, snap.LastUpdated)),
	)
	body := Render(week, RenderOptions{Layout: layout, Width: m.width, Expand: m.expand})

	var footer string
	if m.showHelp {
		footer = m.help.FullHelpView(m.keys.FullHelp())
	} else {
		footer = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.filterBar(snap),
		body,
		statusStyle.Render(m.status),
		footer,
	)
}

func (m Model) filterBar(snap store.Snapshot) string {
	f := snap.Filters
	items := make([]string, 0)
	for i, fc := range m.facets(snap) {
		on := false
		switch fc.kind {
		case schedule.EventToggleLocation:
			on = f.LocationSelected(fc.value)
		case schedule.EventToggleProgram:
			on = f.ProgramActive(model.ProgramCategory(fc.value))
		}
		label := "[ ] " + fc.value
		if on {
			label = selectedStyle.Render("[x] " + fc.value)
		}
		if i == m.cursor {
			label = cursorStyle.Render(label)
		}
		items = append(items, label)
	}
	tr := f.TimeRange()
	items = append(items,
		fmt.Sprintf("apparel: %s", f.Apparel()),
		fmt.Sprintf("level: %s", f.Level()),
		fmt.Sprintf("time: %s to %s", schedule.FormatMinutes(tr.Start), schedule.FormatMinutes(tr.End)),
	)
	return strings.Join(items, "  ")
}

// Run starts the interactive program and blocks until it exits.
func Run(ctx context.Context, st *store.Store, breakpoint int) error {
	p := tea.NewProgram(New(st, breakpoint), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
