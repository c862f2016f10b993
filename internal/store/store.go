package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/source"
)

var (
	// ErrSuperseded is returned by a reload whose result was discarded
	// because a newer reload started after it.
	ErrSuperseded = errors.New("store: reload superseded by a newer one")
	// ErrUnknownLocation rejects toggling a location absent from the data.
	ErrUnknownLocation = errors.New("store: unknown location")
	// ErrUnknownProgram rejects toggling a category absent from the table.
	ErrUnknownProgram = errors.New("store: unknown program")
)

// Loader produces raw schedule rows.
type Loader interface {
	Load(ctx context.Context) (source.Dataset, error)
}

// Options configures a Store.
type Options struct {
	PreferredLocation string
	WeekStart         string
	Programs          []schedule.Program
	// BeginnerKeywords builds the default level predicate. Ignored when
	// Beginner is set.
	BeginnerKeywords []string
	Beginner         schedule.LevelPredicate
}

// Store owns the loaded sessions and the single filter state. All reads
// hand out copies.
type Store struct {
	loader    Loader
	engine    *schedule.Engine
	preferred string
	weekStart string

	mu          sync.RWMutex
	sessions    []model.Session
	locations   []string
	lastUpdated string
	sourceID    string
	fromCache   bool
	loadedAt    time.Time
	loaded      bool
	loadErr     string
	filters     *schedule.FilterState

	gen    uint64
	cancel context.CancelFunc
}

// New creates an empty store. Call Reload to populate it.
func New(loader Loader, opts Options) *Store {
	beginner := opts.Beginner
	if beginner == nil && opts.BeginnerKeywords != nil {
		beginner = schedule.KeywordLevelPredicate(opts.BeginnerKeywords)
	}
	return &Store{
		loader:      loader,
		engine:      schedule.NewEngine(schedule.NewClassifier(opts.Programs), beginner),
		preferred:   opts.PreferredLocation,
		weekStart:   opts.WeekStart,
		sessions:    []model.Session{},
		locations:   []string{},
		lastUpdated: source.UnknownUpdated,
		filters:     schedule.NewFilterState(),
	}
}

// Engine exposes the visibility engine shared by all views.
func (s *Store) Engine() *schedule.Engine { return s.engine }

// Reload fetches fresh data and replaces the dataset. The most recently
// started reload wins: starting a new one cancels any in-flight load, and
// an older load that still completes reports ErrSuperseded without
// touching the store. On failure the previous dataset stays in place.
func (s *Store) Reload(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	ds, err := s.loader.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		appLog.Debug("discarding superseded reload", "generation", gen, "current", s.gen)
		return ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		appLog.Error("schedule reload failed", err, "generation", gen)
		s.loadErr = loadErrorMessage(err)
		return err
	}
	s.loadErr = ""

	coll := schedule.BuildSessions(ds.Rows, s.engine.Classifier())
	s.sessions = coll.Sessions
	s.locations = coll.Locations
	s.lastUpdated = ds.LastUpdated
	s.sourceID = ds.SourceID
	s.fromCache = ds.FromCache
	s.loadedAt = ds.LoadedAt
	if s.loadedAt.IsZero() {
		s.loadedAt = time.Now()
	}
	s.loaded = true
	s.filters.Initialize(s.locations, s.preferred)

	appLog.Info("schedule reloaded",
		"sessions", len(s.sessions),
		"locations", len(s.locations),
		"source", s.sourceID,
		"selected", s.filters.SelectedLocations(),
	)
	return nil
}

// Apply mutates the filter state. Location and program values must exist
// in the loaded data and the category table respectively.
func (s *Store) Apply(ev schedule.Event) (schedule.StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case schedule.EventToggleLocation:
		if !slices.Contains(s.locations, ev.Value) {
			return s.filters.View(), ErrUnknownLocation
		}
	case schedule.EventToggleProgram:
		if !s.engine.Classifier().Known(model.ProgramCategory(ev.Value)) {
			return s.filters.View(), ErrUnknownProgram
		}
	}
	if err := s.filters.Apply(ev); err != nil {
		return s.filters.View(), err
	}
	return s.filters.View(), nil
}

// Snapshot is a consistent, caller-owned copy of the store.
type Snapshot struct {
	Sessions    []model.Session
	Locations   []string
	Programs    []schedule.Program
	LastUpdated string
	SourceID    string
	FromCache   bool
	LoadedAt    time.Time
	Loaded      bool
	// LoadError describes the most recent failed reload, or is empty when
	// the last reload succeeded. Previous data stays available meanwhile.
	LoadError   string
	WeekStart   string
	Filters     *schedule.FilterState
}

// Snapshot copies the current dataset and filter state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Sessions:    slices.Clone(s.sessions),
		Locations:   slices.Clone(s.locations),
		Programs:    s.engine.Classifier().Programs(),
		LastUpdated: s.lastUpdated,
		SourceID:    s.sourceID,
		FromCache:   s.fromCache,
		LoadedAt:    s.loadedAt,
		Loaded:      s.loaded,
		LoadError:   s.loadErr,
		WeekStart:   s.weekStart,
		Filters:     s.filters.Clone(),
	}
}

// loadErrorMessage flattens a possibly joined error into one line.
func loadErrorMessage(err error) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(err.Error(), "\n", "; ")), " ")
}

// Week assembles the visible schedule from a snapshot.
func (s *Store) Week(snap Snapshot) schedule.Week {
	return s.engine.Assemble(snap.Sessions, snap.Filters, snap.WeekStart)
}

// Current is Snapshot followed by Week.
func (s *Store) Current() (Snapshot, schedule.Week) {
	snap := s.Snapshot()
	return snap, s.Week(snap)
}
