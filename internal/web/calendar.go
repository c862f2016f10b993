package web

import (
	"fmt"
	"net/http"
	"time"

	"classgrid/internal/ics"
	"classgrid/internal/model"
)

// icsCache holds the last /schedule.ics body and the state it was built from.
type icsCache struct {
	key       string
	body      string
	updatedAt time.Time
}

const icsCacheTTL = 30 * time.Second

// handleICS exports the schedule as a weekly-recurring calendar.
//
// GET /schedule.ics        visible sessions under the current filters
// GET /schedule.ics?all=1  every session with a known day
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "1"
	snap, week := s.store.Current()
	key := fmt.Sprintf("%d|%t|%v", snap.LoadedAt.UnixNano(), all, snap.Filters.View())

	now := time.Now()
	s.icsMu.RLock()
	c := s.icsCache
	s.icsMu.RUnlock()
	if c != nil && c.key == key && now.Sub(c.updatedAt) < icsCacheTTL {
		writeCalendar(w, c.body)
		return
	}

	var sessions []model.Session
	if all {
		sessions = snap.Sessions
	} else {
		sessions = visibleSessions(week)
	}

	body, err := ics.Export(sessions, ics.ExportOptions{
		Location: s.opts.Location,
		Duration: s.sessionLength(),
		Anchor:   now,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}

	s.icsMu.Lock()
	s.icsCache = &icsCache{key: key, body: body, updatedAt: now}
	s.icsMu.Unlock()

	writeCalendar(w, body)
}

func writeCalendar(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
