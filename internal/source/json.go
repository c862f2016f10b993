package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"classgrid/internal/model"
)

// jsonDocument is the object form of a JSON schedule. A bare array of row
// objects is accepted as well.
type jsonDocument struct {
	LastUpdated string            `json:"lastUpdated"`
	Updated     string            `json:"updated"`
	Classes     []json.RawMessage `json:"classes"`
	Sessions    []json.RawMessage `json:"sessions"`
	Rows        []json.RawMessage `json:"rows"`
}

// ParseJSON reads schedule rows from a JSON document. Numbers are kept as
// json.Number so serial times survive untouched.
func ParseJSON(body []byte) (Dataset, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Dataset{}, errors.New("empty JSON document")
	}

	var (
		items []json.RawMessage
		label string
	)
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Dataset{}, fmt.Errorf("decode rows: %w", err)
		}
	case '{':
		var doc jsonDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Dataset{}, fmt.Errorf("decode document: %w", err)
		}
		label = firstNonEmpty(doc.LastUpdated, doc.Updated)
		switch {
		case doc.Classes != nil:
			items = doc.Classes
		case doc.Sessions != nil:
			items = doc.Sessions
		default:
			items = doc.Rows
		}
	default:
		return Dataset{}, errors.New("JSON document must be an array or an object")
	}

	out := Dataset{
		Rows:        make([]model.RawRow, 0, len(items)),
		LastUpdated: firstNonEmpty(strings.TrimSpace(label), UnknownUpdated),
	}
	for i, raw := range items {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return Dataset{}, fmt.Errorf("decode row %d: %w", i, err)
		}
		if row == nil {
			continue
		}
		out.Rows = append(out.Rows, model.RawRow(row))
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
