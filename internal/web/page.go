package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	appLog "classgrid/internal/log"
	"classgrid/internal/schedule"
	"classgrid/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").ParseFS(templateFS, "templates/page.html"))

// pageData feeds templates/page.html.
type pageData struct {
	Layout      schedule.Layout
	Width       int
	Loaded      bool
	LoadError   string
	LastUpdated string
	Visible     int
	Total       int
	Days        []schedule.DayGroup
	Filters     filtersResponse
	Expand      bool
}

// RenderPage renders the schedule page for a viewport width. The root
// element carries data-ready="true" once the markup is complete, which the
// headless capture waits for.
func RenderPage(st *store.Store, width, breakpoint int, expand bool) ([]byte, error) {
	snap, week := st.Current()
	data := pageData{
		Layout:      schedule.SelectLayout(width, breakpoint),
		Width:       width,
		Loaded:      snap.Loaded,
		LoadError:   snap.LoadError,
		LastUpdated: snap.LastUpdated,
		Visible:     week.Visible,
		Total:       week.Total,
		Days:        week.Days,
		Filters:     filtersView(snap),
		Expand:      expand,
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handlePage serves the server-rendered schedule.
//
// GET /?width=400&expand=1
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := parseIntDefault(q.Get("width"), 0)
	if width <= 0 {
		width = s.opts.Breakpoint
		if s.layoutFor(0) == schedule.LayoutMobile {
			width = s.opts.Breakpoint - 1
		}
	}

	body, err := RenderPage(s.store, width, s.opts.Breakpoint, q.Get("expand") == "1")
	if err != nil {
		appLog.Error("page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handlePageEvent applies a filter event posted by the page's forms and
// redirects back to the page.
//
// POST /events  type=toggle-location&value=Lawrenceville&width=1200&expand=1
func (s *Server) handlePageEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	req := eventRequest{
		Type:  form.Get("type"),
		Value: form.Get("value"),
		From:  form.Get("from"),
		To:    form.Get("to"),
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	ev, err := req.toEvent()
	if err == nil && !ev.Kind.IsFilterEvent() {
		err = fmt.Errorf("%w: %s is not a filter event", errBadRequest, ev.Kind)
	}
	if err == nil {
		_, err = s.store.Apply(ev)
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, pageLocation(parseIntDefault(form.Get("width"), 0), form.Get("expand") == "1"), http.StatusSeeOther)
}

// pageLocation builds the page URL that keeps the width and expand state.
func pageLocation(width int, expand bool) string {
	q := url.Values{}
	if width > 0 {
		q.Set("width", strconv.Itoa(width))
	}
	if expand {
		q.Set("expand", "1")
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}
