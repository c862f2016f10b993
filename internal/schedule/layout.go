package schedule

// Layout is how a renderer arranges the assembled week.
type Layout string

const (
	// LayoutDesktop shows seven parallel day columns.
	LayoutDesktop Layout = "desktop"
	// LayoutMobile stacks day sections in a single column.
	LayoutMobile Layout = "mobile"
)

// DefaultBreakpoint is the viewport width at which the desktop layout starts.
const DefaultBreakpoint = 768

// SelectLayout returns LayoutDesktop for widths at or above the breakpoint.
// A non-positive breakpoint means DefaultBreakpoint.
func SelectLayout(width, breakpoint int) Layout {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	if width >= breakpoint {
		return LayoutDesktop
	}
	return LayoutMobile
}

// LayoutTracker remembers the layout currently applied so a renderer only
// redraws when a resize crosses the breakpoint.
type LayoutTracker struct {
	breakpoint int
	applied    Layout
}

func NewLayoutTracker(breakpoint int) *LayoutTracker {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return &LayoutTracker{breakpoint: breakpoint}
}

// Observe records a viewport width. It returns the layout for that width and
// whether it differs from the one applied before; the first observation
// always counts as a change.
func (t *LayoutTracker) Observe(width int) (Layout, bool) {
	next := SelectLayout(width, t.breakpoint)
	if next == t.applied {
		return next, false
	}
	t.applied = next
	return next, true
}

// Applied returns the current layout, or "" before the first Observe.
func (t *LayoutTracker) Applied() Layout { return t.applied }

func (t *LayoutTracker) Breakpoint() int { return t.breakpoint }
