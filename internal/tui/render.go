package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"classgrid/internal/model"
	"classgrid/internal/schedule"
)

// NoClasses is shown for a day without visible sessions.
const NoClasses = "No classes"

// DefaultBreakpoint is the terminal width, in columns, at which the seven
// day columns fit side by side.
const DefaultBreakpoint = 140

// RenderOptions controls one schedule rendering.
type RenderOptions struct {
	Layout schedule.Layout
	// Width is the available width in columns. Zero means unbounded.
	Width  int
	Expand bool
}

var (
	dayHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	timeStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	emptyStyle     = mutedStyle.Italic(true)
	columnStyle    = lipgloss.NewStyle().PaddingRight(1)

	// Accent per program style tag.
	styleColors = map[string]lipgloss.Color{
		"bjj":         lipgloss.Color("33"),
		"striking":    lipgloss.Color("160"),
		"youth":       lipgloss.Color("34"),
		"mma":         lipgloss.Color("129"),
		"selfdefense": lipgloss.Color("208"),
	}
)

// Render draws the week. Desktop puts the days side by side; mobile stacks
// them.
func Render(week schedule.Week, opts RenderOptions) string {
	if opts.Layout == schedule.LayoutDesktop {
		return renderDesktop(week, opts)
	}
	return renderMobile(week, opts)
}

func renderDesktop(week schedule.Week, opts RenderOptions) string {
	colWidth := 0
	if opts.Width > 0 && len(week.Days) > 0 {
		colWidth = opts.Width / len(week.Days)
	}
	cols := make([]string, 0, len(week.Days))
	for _, g := range week.Days {
		inner := colWidth - columnStyle.GetHorizontalFrameSize()
		block := renderDay(g, inner, opts.Expand)
		style := columnStyle
		if colWidth > 0 {
			style = style.Width(colWidth)
		}
		cols = append(cols, style.Render(block))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderMobile(week schedule.Week, opts RenderOptions) string {
	blocks := make([]string, 0, len(week.Days))
	for _, g := range week.Days {
		blocks = append(blocks, renderDay(g, opts.Width, opts.Expand))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderDay(g schedule.DayGroup, width int, expand bool) string {
	lines := []string{dayHeaderStyle.Render(string(g.Day))}
	if len(g.Sessions) == 0 {
		lines = append(lines, emptyStyle.Render(NoClasses))
	}
	for _, s := range g.Sessions {
		lines = append(lines, renderSession(s, width, expand))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func renderSession(s model.Session, width int, expand bool) string {
	bar := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		PaddingLeft(1)
	if c, ok := styleColors[s.Style]; ok {
		bar = bar.BorderForeground(c)
	}
	if width > bar.GetHorizontalFrameSize() {
		bar = bar.Width(width - bar.GetHorizontalFrameSize())
	}

	parts := []string{
		timeStyle.Render(s.TimeDisplay),
		s.ClassName,
		mutedStyle.Render(s.Location),
	}
	if expand {
		parts = append(parts, details(s)...)
	}
	return bar.Render(strings.Join(parts, "\n"))
}

func details(s model.Session) []string {
	out := make([]string, 0, 4)
	if s.Discipline != "" {
		out = append(out, s.Discipline)
	}
	if s.Apparel != "" {
		out = append(out, "Apparel: "+s.Apparel)
	}
	if s.Details != "" {
		out = append(out, s.Details)
	}
	if s.Requisites != "" {
		out = append(out, "Requisites: "+s.Requisites)
	}
	return out
}

// Summary is the one-line header above the schedule.
func Summary(week schedule.Week, lastUpdated string) string {
	return fmt.Sprintf("Showing %d of %d classes  ·  Last updated: %s", week.Visible, week.Total, lastUpdated)
}
