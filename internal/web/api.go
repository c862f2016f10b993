package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"classgrid/internal/ics"
	appLog "classgrid/internal/log"
	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/store"
)

// locationOption is one entry of the location facet.
type locationOption struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// programOption is one entry of the program facet.
type programOption struct {
	Name   model.ProgramCategory `json:"name"`
	Style  string                `json:"style,omitempty"`
	Active bool                  `json:"active"`
}

type timeRangeDTO struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	StartLabel string `json:"start_label"`
	EndLabel   string `json:"end_label"`
}

// filtersResponse is the JSON response shape for /api/filters.
type filtersResponse struct {
	Locations       []locationOption       `json:"locations"`
	Programs        []programOption        `json:"programs"`
	Apparel         schedule.ApparelFilter `json:"apparel"`
	Level           schedule.LevelFilter   `json:"level"`
	TimeRange       timeRangeDTO           `json:"time_range"`
	DefaultLocation string                 `json:"default_location"`
}

type dayDTO struct {
	Day      model.Weekday   `json:"day"`
	Sessions []model.Session `json:"sessions"`
}

// scheduleResponse is the JSON response shape for /api/schedule and for
// filter events.
type scheduleResponse struct {
	Layout      schedule.Layout `json:"layout"`
	Breakpoint  int             `json:"breakpoint"`
	Loaded      bool            `json:"loaded"`
	LoadError   string          `json:"load_error,omitempty"`
	LastUpdated string          `json:"last_updated"`
	LoadedAt    *time.Time      `json:"loaded_at,omitempty"`
	Visible     int             `json:"visible"`
	Total       int             `json:"total"`
	Days        []dayDTO        `json:"days"`
	Filters     filtersResponse `json:"filters"`
}

type layoutResponse struct {
	Layout     schedule.Layout `json:"layout"`
	Breakpoint int             `json:"breakpoint"`
	Width      int             `json:"width"`
	Changed    bool            `json:"changed"`
}

type upcomingResponse struct {
	Occurrences []ics.Occurrence `json:"occurrences"`
	From        time.Time        `json:"from"`
	TimeZone    string           `json:"timezone"`
}

// eventRequest is the body of POST /api/events.
type eventRequest struct {
	Type  string `json:"type" validate:"required,oneof=toggle-location toggle-program set-apparel-filter set-level-filter set-time-range clear-all-filters viewport-resize"`
	Value string `json:"value" validate:"max=200"`
	// Start and End are minutes after midnight. From and To accept clock
	// text instead ("13:00", "1:00 PM") and take precedence.
	Start *int   `json:"start" validate:"omitempty,min=0,max=1440"`
	End   *int   `json:"end" validate:"omitempty,min=0,max=1440"`
	From  string `json:"from" validate:"max=20"`
	To    string `json:"to" validate:"max=20"`
	Width int    `json:"width" validate:"min=0"`
}

// toEvent resolves the request into a schedule event.
func (req eventRequest) toEvent() (schedule.Event, error) {
	ev := schedule.Event{
		Kind:  schedule.EventKind(req.Type),
		Value: strings.TrimSpace(req.Value),
		Width: req.Width,
	}
	if ev.Kind != schedule.EventSetTimeRange {
		return ev, nil
	}

	start, end := schedule.FullDay.Start, schedule.FullDay.End
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}
	if req.From != "" {
		m, err := schedule.ParseClock(req.From)
		if err != nil {
			return ev, fmt.Errorf("%w: from: %v", schedule.ErrInvalidTimeRange, err)
		}
		start = m
	}
	if req.To != "" {
		m, err := schedule.ParseClock(req.To)
		if err != nil {
			return ev, fmt.Errorf("%w: to: %v", schedule.ErrInvalidTimeRange, err)
		}
		end = m
	}
	ev.Start, ev.End = start, end
	return ev, nil
}

func filtersView(snap store.Snapshot) filtersResponse {
	f := snap.Filters
	out := filtersResponse{
		Locations:       make([]locationOption, 0, len(snap.Locations)),
		Programs:        make([]programOption, 0, len(snap.Programs)),
		Apparel:         f.Apparel(),
		Level:           f.Level(),
		DefaultLocation: f.DefaultLocationName(),
	}
	for _, loc := range snap.Locations {
		out.Locations = append(out.Locations, locationOption{Name: loc, Selected: f.LocationSelected(loc)})
	}
	for _, p := range snap.Programs {
		out.Programs = append(out.Programs, programOption{Name: p.Name, Style: p.Style, Active: f.ProgramActive(p.Name)})
	}
	tr := f.TimeRange()
	out.TimeRange = timeRangeDTO{
		Start:      tr.Start,
		End:        tr.End,
		StartLabel: schedule.FormatMinutes(tr.Start),
		EndLabel:   schedule.FormatMinutes(tr.End),
	}
	return out
}

func (s *Server) scheduleView(width int) scheduleResponse {
	snap, week := s.store.Current()
	resp := scheduleResponse{
		Layout:      s.layoutFor(width),
		Breakpoint:  s.opts.Breakpoint,
		Loaded:      snap.Loaded,
		LoadError:   snap.LoadError,
		LastUpdated: snap.LastUpdated,
		Visible:     week.Visible,
		Total:       week.Total,
		Days:        make([]dayDTO, 0, len(week.Days)),
		Filters:     filtersView(snap),
	}
	if snap.Loaded {
		t := snap.LoadedAt
		resp.LoadedAt = &t
	}
	for _, g := range week.Days {
		resp.Days = append(resp.Days, dayDTO{Day: g.Day, Sessions: g.Sessions})
	}
	return resp
}

// layoutFor picks the layout for an explicit width, or the last applied
// layout when the client sent none.
func (s *Server) layoutFor(width int) schedule.Layout {
	if width > 0 {
		return schedule.SelectLayout(width, s.opts.Breakpoint)
	}
	s.layoutMu.Lock()
	defer s.layoutMu.Unlock()
	if l := s.layout.Applied(); l != "" {
		return l
	}
	return schedule.LayoutDesktop
}

// handleSchedule returns the assembled week.
//
// GET /api/schedule?width=1024
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	width := parseIntDefault(r.URL.Query().Get("width"), 0)
	writeJSON(w, http.StatusOK, s.scheduleView(width))
}

func (s *Server) handleFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, filtersView(s.store.Snapshot()))
}

// handleLayout selects a layout for a width without touching any state.
//
// GET /api/layout?width=600
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	width := parseIntDefault(r.URL.Query().Get("width"), -1)
	if width < 0 {
		writeError(w, http.StatusBadRequest, "width must be a non-negative integer")
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{
		Layout:     schedule.SelectLayout(width, s.opts.Breakpoint),
		Breakpoint: s.opts.Breakpoint,
		Width:      width,
	})
}

// handleEvent applies one user event. Filter events return the recomputed
// schedule; viewport-resize only reports the layout.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeFailure(w, err)
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeFailure(w, err)
		return
	}

	if ev.Kind == schedule.EventViewportResize {
		if ev.Width <= 0 {
			writeFailure(w, fmt.Errorf("%w: viewport-resize needs a positive width", errBadRequest))
			return
		}
		s.layoutMu.Lock()
		layout, changed := s.layout.Observe(ev.Width)
		s.layoutMu.Unlock()
		if changed {
			appLog.Debug("layout changed", "layout", layout, "width", ev.Width)
		}
		writeJSON(w, http.StatusOK, layoutResponse{
			Layout:     layout,
			Breakpoint: s.opts.Breakpoint,
			Width:      ev.Width,
			Changed:    changed,
		})
		return
	}

	if _, err := s.store.Apply(ev); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduleView(ev.Width))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Apply(schedule.Event{Kind: schedule.EventClearAll}); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduleView(parseIntDefault(r.URL.Query().Get("width"), 0)))
}

// handleReload re-reads the data sources. On failure the previous data
// stays in place.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reload(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scheduleView(parseIntDefault(r.URL.Query().Get("width"), 0)))
}

// handleUpcoming lists the next dated occurrences of the visible sessions.
//
// GET /api/upcoming?count=10
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	count := parseIntDefault(r.URL.Query().Get("count"), 10)
	if count <= 0 {
		count = 10
	}
	_, week := s.store.Current()
	from := time.Now().In(s.opts.Location)
	occ := ics.Upcoming(visibleSessions(week), from, count, s.opts.Location, s.sessionLength())
	writeJSON(w, http.StatusOK, upcomingResponse{
		Occurrences: occ,
		From:        from,
		TimeZone:    s.opts.Location.String(),
	})
}

func (s *Server) sessionLength() time.Duration {
	return time.Duration(s.opts.SessionMinutes) * time.Minute
}

func visibleSessions(week schedule.Week) []model.Session {
	out := make([]model.Session, 0, week.Visible)
	for _, g := range week.Days {
		out = append(out, g.Sessions...)
	}
	return out
}
