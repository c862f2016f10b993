package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	appLog "classgrid/internal/log"
	"classgrid/internal/schedule"
	"classgrid/internal/source"
	"classgrid/internal/store"
)

// Options wires a Server to its collaborators.
type Options struct {
	Store *store.Store
	// Breakpoint is the desktop threshold in pixels.
	Breakpoint int
	// Location is used for the iCalendar export and upcoming occurrences.
	Location       *time.Location
	SessionMinutes int
	// AllowedOrigins for CORS on /api. Empty allows any origin.
	AllowedOrigins []string
	// PreviewPath is the PNG served at /preview.png.
	PreviewPath string
	// ReloadPerMinute limits POST /api/reload per client IP.
	ReloadPerMinute int
}

// Server provides the HTML page and the JSON API over a single Store.
type Server struct {
	opts     Options
	store    *store.Store
	validate *validator.Validate
	router   chi.Router

	// Layout applied by the last viewport-resize event.
	layoutMu sync.Mutex
	layout   *schedule.LayoutTracker

	// In-memory cache for /schedule.ics keyed by dataset and filter state.
	icsMu    sync.RWMutex
	icsCache *icsCache
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	if opts.Breakpoint <= 0 {
		opts.Breakpoint = schedule.DefaultBreakpoint
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SessionMinutes <= 0 {
		opts.SessionMinutes = 60
	}
	if opts.ReloadPerMinute <= 0 {
		opts.ReloadPerMinute = 6
	}
	s := &Server{
		opts:     opts,
		store:    opts.Store,
		validate: validator.New(),
		layout:   schedule.NewLayoutTracker(opts.Breakpoint),
	}
	s.router = s.routes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handlePage)
	r.Post("/events", s.handlePageEvent)
	r.Get("/schedule.ics", s.handleICS)
	r.Get("/preview.png", s.handlePreview)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/schedule", s.handleSchedule)
		r.Get("/filters", s.handleFilters)
		r.Get("/layout", s.handleLayout)
		r.Get("/upcoming", s.handleUpcoming)
		r.Post("/events", s.handleEvent)
		r.Post("/filters/clear", s.handleClear)
		r.With(httprate.LimitByIP(s.opts.ReloadPerMinute, time.Minute)).Post("/reload", s.handleReload)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// requestLogger logs one line per request through the application logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.opts.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	// http.ServeFile maps missing files to 404 and other failures to 500.
	http.ServeFile(w, r, s.opts.PreviewPath)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, schedule.ErrUnknownEvent),
		errors.Is(err, schedule.ErrInvalidApparel),
		errors.Is(err, schedule.ErrInvalidLevel),
		errors.Is(err, schedule.ErrInvalidTimeRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnknownLocation), errors.Is(err, store.ErrUnknownProgram):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, source.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeFailure logs server-side failures and reports err to the client.
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err, "status", status)
	}
	writeError(w, status, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
