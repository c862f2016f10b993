package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
)

// ErrUnavailable is returned when no configured source produced data.
var ErrUnavailable = errors.New("source: schedule data unavailable")

// Dataset is the raw result of one successful load.
type Dataset struct {
	Rows        []model.RawRow
	LastUpdated string
	// SourceID names the source that produced the rows.
	SourceID  string
	FromCache bool
	LoadedAt  time.Time
}

// Loader tries each source in order and returns the first that decodes.
type Loader struct {
	fetcher *Fetcher
	sources []Source
	sheet   SheetOptions
}

// NewLoader builds a Loader. The sources slice is copied.
func NewLoader(fetcher *Fetcher, sources []Source, sheet SheetOptions) *Loader {
	if fetcher == nil {
		fetcher = NewFetcher("")
	}
	return &Loader{
		fetcher: fetcher,
		sources: append([]Source(nil), sources...),
		sheet:   sheet.normalized(),
	}
}

// Sources returns the configured sources in order.
func (l *Loader) Sources() []Source {
	return append([]Source(nil), l.sources...)
}

// Load returns rows from the first source that can be fetched and decoded.
// When every source fails, the error wraps ErrUnavailable together with
// each individual failure.
func (l *Loader) Load(ctx context.Context) (Dataset, error) {
	if len(l.sources) == 0 {
		return Dataset{}, fmt.Errorf("%w: no sources configured", ErrUnavailable)
	}

	errs := make([]error, 0, len(l.sources))
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		res, err := l.fetcher.Fetch(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return Dataset{}, ctx.Err()
			}
			appLog.Warn("source unavailable, trying next", "id", src.ID, "err", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}

		ds, err := Decode(src, res.ContentType, res.Body, l.sheet)
		if err != nil {
			appLog.Warn("source decode failed, trying next", "id", src.ID, "err", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}
		ds.SourceID = src.ID
		ds.FromCache = res.FromCache
		ds.LoadedAt = time.Now()

		appLog.Info("schedule data loaded", "id", src.ID, "rows", len(ds.Rows), "updated", ds.LastUpdated, "from_cache", res.FromCache)
		return ds, nil
	}

	return Dataset{}, errors.Join(append([]error{ErrUnavailable}, errs...)...)
}

// Decode parses body according to the source format. "auto" guesses from
// the content type, the file extension and finally the bytes themselves.
func Decode(src Source, contentType string, body []byte, sheet SheetOptions) (Dataset, error) {
	switch DetectFormat(src, contentType, body) {
	case "xlsx":
		return ParseXLSX(body, sheet)
	case "json":
		return ParseJSON(body)
	default:
		return Dataset{}, fmt.Errorf("unrecognized schedule format for %q", src.Location())
	}
}

// zipMagic starts every xlsx file.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat resolves "auto" to "xlsx" or "json". It returns "" when
// nothing matches.
func DetectFormat(src Source, contentType string, body []byte) string {
	switch f := strings.ToLower(src.Format); f {
	case "xlsx", "json":
		return f
	}

	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case mt == "application/json" || strings.HasSuffix(mt, "+json"):
			return "json"
		case strings.Contains(mt, "spreadsheetml"):
			return "xlsx"
		}
	}

	p := src.Path
	if src.URL != "" {
		if u, err := url.Parse(src.URL); err == nil {
			p = u.Path
		}
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".json":
		return "json"
	}

	if bytes.HasPrefix(body, zipMagic) {
		return "xlsx"
	}
	if t := bytes.TrimSpace(body); len(t) > 0 && (t[0] == '[' || t[0] == '{') {
		return "json"
	}
	return ""
}
