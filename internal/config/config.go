package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"classgrid/internal/schedule"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment variables (optionally from a .env file) override
// a handful of keys after the file is read.

// SourceConfig describes one schedule data source. Sources are tried in
// order; the first one that loads wins.
type SourceConfig struct {
	// ID is an internal identifier used for cache keys and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// URL is an http(s) endpoint. Mutually exclusive with Path.
	URL string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	// Path is a local file.
	Path string `yaml:"path,omitempty" json:"path,omitempty" validate:"required_without=URL"`
	// Format is "xlsx", "json" or "auto" (guess from extension and content).
	Format string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=xlsx json auto"`
}

// SheetConfig locates the schedule inside a workbook.
type SheetConfig struct {
	// Name of the sheet; empty means the first sheet.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// HeaderRow is the 1-based row holding column names.
	HeaderRow int `yaml:"header_row" json:"header_row" validate:"min=1"`
	// UpdatedCell holds the "last updated" label, e.g. "B1".
	UpdatedCell string `yaml:"updated_cell" json:"updated_cell"`
}

// CaptureConfig controls headless PNG previews.
type CaptureConfig struct {
	// URL of the page to capture; empty means the local server root.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Output is where the PNG is written and served from /preview.png.
	Output string `yaml:"output" json:"output"`
	Height int    `yaml:"height" json:"height" validate:"min=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=console json"`

	// PreferredLocation is selected after the first load when the data
	// contains it; otherwise the first location seen is used.
	PreferredLocation string `yaml:"preferred_location" json:"preferred_location"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start" validate:"oneof=monday sunday"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// used for periodic reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Breakpoint is the viewport width at which the desktop layout starts.
	Breakpoint int `yaml:"breakpoint" json:"breakpoint" validate:"min=1"`

	// Timezone is the IANA timezone used for the iCalendar export and
	// upcoming occurrences.
	Timezone string `yaml:"timezone" json:"timezone"`

	// SessionMinutes is the event length used by the iCalendar export.
	SessionMinutes int `yaml:"session_minutes" json:"session_minutes" validate:"min=1,max=1440"`

	// CacheDir holds HTTP source bodies and their ETag/Last-Modified metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Sources []SourceConfig `yaml:"sources" json:"sources" validate:"dive"`
	Sheet   SheetConfig    `yaml:"sheet" json:"sheet"`

	// Programs is the ordered category table. Order matters: when a
	// discipline matches several categories, the last one wins.
	Programs []schedule.Program `yaml:"programs" json:"programs"`

	// BeginnerKeywords mark a session as beginner-friendly when found in
	// its details or requisites.
	BeginnerKeywords []string `yaml:"beginner_keywords" json:"beginner_keywords"`

	// AllowedOrigins controls CORS on /api. Empty means all origins.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultPreferred  = "Strip District"
	defaultRefresh    = "*/30 * * * *"
	defaultTimezone   = "America/New_York"
	defaultCacheDir   = "./cache/source-cache"
	defaultPreview    = "./cache/preview.png"
	defaultHeaderRow  = 3
	defaultUpdateCell = "B1"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		LogLevel:          "info",
		LogFormat:         "console",
		PreferredLocation: defaultPreferred,
		WeekStart:         "monday",
		RefreshCron:       defaultRefresh,
		Breakpoint:        schedule.DefaultBreakpoint,
		Timezone:          defaultTimezone,
		SessionMinutes:    60,
		CacheDir:          defaultCacheDir,
		Sources: []SourceConfig{
			{ID: "schedule-xlsx", Name: "Schedule workbook", Path: "StoutPGH_Schedule.xlsx", Format: "xlsx"},
			{ID: "schedule-json", Name: "Schedule JSON", Path: "schedule.json", Format: "json"},
		},
		Sheet: SheetConfig{
			HeaderRow:   defaultHeaderRow,
			UpdatedCell: defaultUpdateCell,
		},
		Programs:         append([]schedule.Program(nil), schedule.DefaultPrograms...),
		BeginnerKeywords: append([]string(nil), schedule.DefaultBeginnerKeywords...),
		AllowedOrigins:   []string{},
		Capture: CaptureConfig{
			Output: defaultPreview,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.LogFormat != "json" {
		c.LogFormat = "console"
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.Breakpoint <= 0 {
		c.Breakpoint = schedule.DefaultBreakpoint
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.SessionMinutes <= 0 || c.SessionMinutes > 1440 {
		c.SessionMinutes = 60
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.ID == "" {
			switch {
			case s.Name != "":
				s.ID = s.Name
			case s.URL != "":
				s.ID = s.URL
			default:
				s.ID = s.Path
			}
		}
		if s.Format == "" {
			s.Format = "auto"
		}
	}
	if c.Sheet.HeaderRow <= 0 {
		c.Sheet.HeaderRow = defaultHeaderRow
	}
	if c.Sheet.UpdatedCell == "" {
		c.Sheet.UpdatedCell = defaultUpdateCell
	}
	if len(c.Programs) == 0 {
		c.Programs = append([]schedule.Program(nil), schedule.DefaultPrograms...)
	}
	if c.BeginnerKeywords == nil {
		c.BeginnerKeywords = append([]string(nil), schedule.DefaultBeginnerKeywords...)
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{}
	}
	if c.Capture.Output == "" {
		c.Capture.Output = defaultPreview
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a normalized config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path and applies environment
// overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - In both cases a .env file in the working directory (if any) is read and
//     CLASSGRID_* variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	// .env is optional.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, cfg.Validate()
}

// ApplyEnv overrides fields from CLASSGRID_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CLASSGRID_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CLASSGRID_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("CLASSGRID_LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("CLASSGRID_PREFERRED_LOCATION"); v != "" {
		c.PreferredLocation = v
	}
	if v := os.Getenv("CLASSGRID_BREAKPOINT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Breakpoint = n
		}
	}
	if v := os.Getenv("CLASSGRID_REFRESH"); v != "" {
		c.RefreshCron = v
	}
	if v := os.Getenv("CLASSGRID_SOURCE"); v != "" {
		src := SourceConfig{ID: "env", Format: "auto"}
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			src.URL = v
		} else {
			src.Path = v
		}
		c.Sources = append([]SourceConfig{src}, c.Sources...)
	}
	if v := os.Getenv("CLASSGRID_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = parseList(v)
	}
}

// parseList splits a comma-separated string into trimmed, non-empty parts.
func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".classgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
