package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
)

// Fallbacks for required fields that are missing from a row.
const (
	UntitledClass   = "Untitled Class"
	UnknownLocation = "Unknown"
)

// Column aliases, matched trimmed and case-insensitively. The first alias
// present in a row wins.
var (
	colClass      = []string{"class", "class name"}
	colDiscipline = []string{"discipline(s)", "discipline", "disciplines"}
	colDay        = []string{"day"}
	colTime       = []string{"time", "start time"}
	colLocation   = []string{"location"}
	colApparel    = []string{"apparel format", "gi / no gi", "gi/no gi", "apparel"}
	colDetails    = []string{"details"}
	colRequisites = []string{"requisites", "requirements"}
)

var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("classgrid/session"))

// Collection is the result of one data load.
type Collection struct {
	Sessions []model.Session
	// Locations is every non-empty source location, deduplicated in
	// first-seen order.
	Locations []string
}

// BuildSessions maps raw rows to sessions. It is total: rows with missing or
// malformed fields still produce a session with fallback values.
func BuildSessions(rows []model.RawRow, c *Classifier) Collection {
	if c == nil {
		c = NewClassifier(nil)
	}

	out := Collection{
		Sessions:  make([]model.Session, 0, len(rows)),
		Locations: make([]string, 0),
	}
	seen := make(map[string]struct{})
	degraded := 0

	for i, row := range rows {
		fields := foldKeys(row)

		rawTime := pick(fields, colTime)
		t := NormalizeTime(rawTime)
		if t.Minutes == 0 && t.Display != "" && t.Display != FormatMinutes(0) {
			degraded++
			appLog.Debug("unparsed time; sorting first", "row", i, "time", t.Display)
		}

		location := cellString(pick(fields, colLocation))
		if location != "" {
			if _, ok := seen[location]; !ok {
				seen[location] = struct{}{}
				out.Locations = append(out.Locations, location)
			}
		} else {
			location = UnknownLocation
		}

		className := cellString(pick(fields, colClass))
		if className == "" {
			className = UntitledClass
		}

		rawDay := cellString(pick(fields, colDay))
		day := model.ParseWeekday(rawDay)
		if day == model.UnknownDay && rawDay != "" {
			appLog.Debug("unrecognized day", "row", i, "day", rawDay)
		}

		discipline := cellString(pick(fields, colDiscipline))
		category := c.Classify(discipline)

		s := model.Session{
			ClassName:   className,
			Discipline:  discipline,
			Day:         day,
			TimeMinutes: t.Minutes,
			TimeDisplay: t.Display,
			Location:    location,
			Apparel:     cellString(pick(fields, colApparel)),
			Details:     cellString(pick(fields, colDetails)),
			Requisites:  cellString(pick(fields, colRequisites)),
			Category:    category,
			Style:       c.Style(category),
		}
		s.ID = sessionID(i, s)
		out.Sessions = append(out.Sessions, s)
	}

	if degraded > 0 {
		appLog.Info("sessions built with unparsed times", "count", degraded)
	}
	return out
}

func sessionID(index int, s model.Session) string {
	key := strings.Join([]string{
		strconv.Itoa(index), s.ClassName, s.Discipline, string(s.Day),
		strconv.Itoa(s.TimeMinutes), s.Location,
	}, "\x1f")
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String()
}

func foldKeys(row model.RawRow) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, dup := out[key]; dup && isBlank(v) {
			continue
		}
		out[key] = v
	}
	return out
}

func pick(fields map[string]any, aliases []string) any {
	for _, a := range aliases {
		if v, ok := fields[a]; ok && !isBlank(v) {
			return v
		}
	}
	return nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// cellString renders a raw cell as trimmed text.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02 15:04")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
