package schedule

import (
	"errors"
	"fmt"

	"classgrid/internal/model"
)

var ErrUnknownEvent = errors.New("schedule: unknown event")

// EventKind names a control-surface action.
type EventKind string

const (
	EventToggleLocation EventKind = "toggle-location"
	EventToggleProgram  EventKind = "toggle-program"
	EventSetApparel     EventKind = "set-apparel-filter"
	EventSetLevel       EventKind = "set-level-filter"
	EventSetTimeRange   EventKind = "set-time-range"
	EventClearAll       EventKind = "clear-all-filters"
	// EventViewportResize carries a width for the layout tracker; it never
	// touches FilterState.
	EventViewportResize EventKind = "viewport-resize"
)

// EventKinds lists every kind, in control-surface order.
var EventKinds = []EventKind{
	EventToggleLocation, EventToggleProgram, EventSetApparel, EventSetLevel,
	EventSetTimeRange, EventClearAll, EventViewportResize,
}

// Event is one user action. Value carries the location, program, apparel or
// level; Start/End the time range; Width the viewport width.
type Event struct {
	Kind  EventKind
	Value string
	Start int
	End   int
	Width int
}

// Apply mutates f according to ev. Invalid values leave f unchanged.
func (f *FilterState) Apply(ev Event) error {
	switch ev.Kind {
	case EventToggleLocation:
		f.ToggleLocation(ev.Value)
		return nil
	case EventToggleProgram:
		f.ToggleProgram(model.ProgramCategory(ev.Value))
		return nil
	case EventSetApparel:
		a, err := ParseApparel(ev.Value)
		if err != nil {
			return err
		}
		return f.SetApparel(a)
	case EventSetLevel:
		l, err := ParseLevel(ev.Value)
		if err != nil {
			return err
		}
		return f.SetLevel(l)
	case EventSetTimeRange:
		return f.SetTimeRange(ev.Start, ev.End)
	case EventClearAll:
		f.ClearAll()
		return nil
	case EventViewportResize:
		return fmt.Errorf("%w: %s is handled by the layout tracker", ErrUnknownEvent, ev.Kind)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
}

// IsFilterEvent reports whether k mutates FilterState.
func (k EventKind) IsFilterEvent() bool {
	switch k {
	case EventToggleLocation, EventToggleProgram, EventSetApparel, EventSetLevel, EventSetTimeRange, EventClearAll:
		return true
	}
	return false
}
