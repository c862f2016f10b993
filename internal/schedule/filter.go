package schedule

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"classgrid/internal/model"
)

var (
	ErrInvalidTimeRange = errors.New("schedule: invalid time range")
	ErrInvalidApparel   = errors.New("schedule: invalid apparel filter")
	ErrInvalidLevel     = errors.New("schedule: invalid level filter")
)

// ApparelFilter restricts sessions by apparel requirement.
type ApparelFilter string

const (
	ApparelAny      ApparelFilter = "any"
	ApparelGiOnly   ApparelFilter = "gi"
	ApparelNoGiOnly ApparelFilter = "nogi"
)

// ParseApparel accepts the canonical values plus a few spellings used in
// query strings and CLI flags ("gi-only", "no-gi", "").
func ParseApparel(s string) (ApparelFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return ApparelAny, nil
	case "gi", "gi-only", "gionly":
		return ApparelGiOnly, nil
	case "nogi", "no-gi", "no gi", "nogi-only", "no-gi-only", "nogionly":
		return ApparelNoGiOnly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidApparel, s)
}

// LevelFilter restricts sessions by experience level.
type LevelFilter string

const (
	LevelAny          LevelFilter = "any"
	LevelBeginnerOnly LevelFilter = "beginner"
)

func ParseLevel(s string) (LevelFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return LevelAny, nil
	case "beginner", "beginner-only", "beginners":
		return LevelBeginnerOnly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// TimeRange is an inclusive [Start, End] window in minutes since midnight.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullDay covers every possible session time.
var FullDay = TimeRange{Start: 0, End: minutesPerDay}

func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= minutesPerDay
}

func (r TimeRange) Contains(minutes int) bool {
	return r.Start <= minutes && minutes <= r.End
}

// FilterState is the current combination of filter selections. It is mutated
// only through its methods; the engine and assembler only read it.
//
// FilterState is not safe for concurrent use. Shared instances are guarded by
// the owner (see internal/store) and handed to readers as clones.
type FilterState struct {
	locations       []string
	programs        []model.ProgramCategory
	apparel         ApparelFilter
	level           LevelFilter
	timeRange       TimeRange
	defaultLocation string
}

// NewFilterState returns a state with no restrictions and no locations
// selected; Initialize selects the default location once data has loaded.
func NewFilterState() *FilterState {
	return &FilterState{
		apparel:   ApparelAny,
		level:     LevelAny,
		timeRange: FullDay,
	}
}

// DefaultLocation picks preferred when it is one of locations, else the
// first location, else "".
func DefaultLocation(locations []string, preferred string) string {
	for _, l := range locations {
		if l == preferred {
			return l
		}
	}
	if len(locations) > 0 {
		return locations[0]
	}
	return ""
}

// Initialize reconciles the state with a freshly loaded location list.
// Selections that no longer exist are dropped; if nothing remains, the
// default location is selected. Other facets are left alone.
func (f *FilterState) Initialize(locations []string, preferred string) {
	f.defaultLocation = DefaultLocation(locations, preferred)

	known := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		known[l] = struct{}{}
	}
	kept := f.locations[:0:0]
	for _, l := range f.locations {
		if _, ok := known[l]; ok {
			kept = append(kept, l)
		}
	}
	f.locations = kept
	if len(f.locations) == 0 && f.defaultLocation != "" {
		f.locations = []string{f.defaultLocation}
	}
}

// ToggleLocation selects or deselects a location. Deselecting the last
// selected location is a no-op. It reports whether the state changed.
func (f *FilterState) ToggleLocation(location string) bool {
	for i, l := range f.locations {
		if l != location {
			continue
		}
		if len(f.locations) == 1 {
			return false
		}
		f.locations = append(f.locations[:i:i], f.locations[i+1:]...)
		return true
	}
	f.locations = append(f.locations, location)
	return true
}

// ToggleProgram adds or removes a category from the active set.
func (f *FilterState) ToggleProgram(p model.ProgramCategory) {
	for i, cur := range f.programs {
		if cur == p {
			f.programs = append(f.programs[:i:i], f.programs[i+1:]...)
			return
		}
	}
	f.programs = append(f.programs, p)
}

func (f *FilterState) SetApparel(a ApparelFilter) error {
	switch a {
	case ApparelAny, ApparelGiOnly, ApparelNoGiOnly:
		f.apparel = a
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidApparel, a)
}

func (f *FilterState) SetLevel(l LevelFilter) error {
	switch l {
	case LevelAny, LevelBeginnerOnly:
		f.level = l
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidLevel, l)
}

// SetTimeRange requires 0 <= start <= end <= 1440.
func (f *FilterState) SetTimeRange(start, end int) error {
	r := TimeRange{Start: start, End: end}
	if !r.Valid() {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidTimeRange, start, end)
	}
	f.timeRange = r
	return nil
}

// ClearAll restores the post-load defaults: only the default location, no
// program, apparel, level or time restriction.
func (f *FilterState) ClearAll() {
	f.locations = nil
	if f.defaultLocation != "" {
		f.locations = []string{f.defaultLocation}
	}
	f.programs = nil
	f.apparel = ApparelAny
	f.level = LevelAny
	f.timeRange = FullDay
}

// Clone returns a deep copy, for handing to readers.
func (f *FilterState) Clone() *FilterState {
	cp := *f
	cp.locations = append([]string(nil), f.locations...)
	cp.programs = append([]model.ProgramCategory(nil), f.programs...)
	return &cp
}

func (f *FilterState) SelectedLocations() []string {
	return append([]string(nil), f.locations...)
}

func (f *FilterState) LocationSelected(location string) bool {
	for _, l := range f.locations {
		if l == location {
			return true
		}
	}
	return false
}

func (f *FilterState) ActivePrograms() []model.ProgramCategory {
	return append([]model.ProgramCategory(nil), f.programs...)
}

func (f *FilterState) ProgramActive(p model.ProgramCategory) bool {
	for _, cur := range f.programs {
		if cur == p {
			return true
		}
	}
	return false
}

func (f *FilterState) Apparel() ApparelFilter { return f.apparel }

func (f *FilterState) Level() LevelFilter { return f.level }

func (f *FilterState) TimeRange() TimeRange { return f.timeRange }

func (f *FilterState) DefaultLocationName() string { return f.defaultLocation }

// StateView is the JSON-friendly form of a FilterState.
type StateView struct {
	Locations []string                `json:"locations"`
	Programs  []model.ProgramCategory `json:"programs"`
	Apparel   ApparelFilter           `json:"apparel"`
	Level     LevelFilter             `json:"level"`
	TimeRange TimeRange               `json:"time_range"`
	Default   string                  `json:"default_location"`
}

func (f *FilterState) View() StateView {
	v := StateView{
		Locations: f.SelectedLocations(),
		Programs:  f.ActivePrograms(),
		Apparel:   f.apparel,
		Level:     f.level,
		TimeRange: f.timeRange,
		Default:   f.defaultLocation,
	}
	if v.Locations == nil {
		v.Locations = []string{}
	}
	if v.Programs == nil {
		v.Programs = []model.ProgramCategory{}
	}
	return v
}

// LevelPredicate decides whether a session counts as beginner-friendly.
type LevelPredicate func(s model.Session) bool

// DefaultBeginnerKeywords are matched against details and requisites.
var DefaultBeginnerKeywords = []string{"beginner", "fundamental", "all levels", "no experience", "intro"}

// KeywordLevelPredicate matches any keyword, case-insensitively, as a
// substring of the session's details or requisites. A keyword directly
// negated ("not for beginners", "not an intro") does not count.
func KeywordLevelPredicate(keywords []string) LevelPredicate {
	if len(keywords) == 0 {
		keywords = DefaultBeginnerKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return func(s model.Session) bool {
		text := strings.ToLower(s.Details + "\n" + s.Requisites)
		for _, k := range lowered {
			if containsUnnegated(text, k) {
				return true
			}
		}
		return false
	}
}

// negations are the phrases that cancel a keyword right after them.
var negations = []string{"not for", "not suitable for", "not recommended for", "not a", "not an", "not"}

func containsUnnegated(text, keyword string) bool {
	from := 0
	for {
		i := strings.Index(text[from:], keyword)
		if i < 0 {
			return false
		}
		at := from + i
		if !negated(text[:at]) {
			return true
		}
		from = at + len(keyword)
	}
}

func negated(before string) bool {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	for _, n := range negations {
		if !strings.HasSuffix(before, n) {
			continue
		}
		rest := before[:len(before)-len(n)]
		if rest == "" || !unicode.IsLetter(rune(rest[len(rest)-1])) {
			return true
		}
	}
	return false
}

// Engine evaluates sessions against a FilterState.
type Engine struct {
	classifier *Classifier
	beginner   LevelPredicate
}

// NewEngine builds an engine. A nil classifier uses DefaultPrograms and a nil
// predicate uses DefaultBeginnerKeywords.
func NewEngine(c *Classifier, beginner LevelPredicate) *Engine {
	if c == nil {
		c = NewClassifier(nil)
	}
	if beginner == nil {
		beginner = KeywordLevelPredicate(nil)
	}
	return &Engine{classifier: c, beginner: beginner}
}

func (e *Engine) Classifier() *Classifier { return e.classifier }

// IsVisible reports whether a session passes every facet of the state. It
// does not modify either argument.
func (e *Engine) IsVisible(s model.Session, f *FilterState) bool {
	if f == nil {
		return true
	}
	if !f.LocationSelected(s.Location) {
		return false
	}
	if len(f.programs) > 0 {
		match := false
		for _, p := range f.programs {
			if e.classifier.Matches(p, s.Discipline) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if !ApparelMatches(s.Apparel, f.apparel) {
		return false
	}
	if f.level == LevelBeginnerOnly && !e.beginner(s) {
		return false
	}
	return f.timeRange.Contains(s.TimeMinutes)
}

// ApparelMatches checks the apparel text word by word. A "gi" word right
// after "no" (or the single word "nogi") is the no-gi token; any other "gi"
// word is the gi token. "Gi / No Gi" holds both, so it passes the no-gi
// filter but not gi-only.
func ApparelMatches(apparel string, filter ApparelFilter) bool {
	switch filter {
	case ApparelGiOnly:
		gi, noGi := apparelTokens(apparel)
		return gi && !noGi
	case ApparelNoGiOnly:
		_, noGi := apparelTokens(apparel)
		return noGi
	default:
		return true
	}
}

func apparelTokens(s string) (gi, noGi bool) {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		switch {
		case w == "nogi":
			noGi = true
		case w == "gi" && i > 0 && words[i-1] == "no":
			noGi = true
		case w == "gi":
			gi = true
		}
	}
	return gi, noGi
}
