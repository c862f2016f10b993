package source

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"classgrid/internal/model"
)

// UnknownUpdated is the label used when the workbook carries no
// "last updated" value.
const UnknownUpdated = "Unknown"

// SheetOptions locates the schedule inside a workbook.
type SheetOptions struct {
	// Sheet name; empty means the first sheet.
	Name string
	// HeaderRow is 1-based.
	HeaderRow int
	// UpdatedCell holds the last-updated label, e.g. "B1".
	UpdatedCell string
}

// DefaultSheet matches the published schedule workbook: a title block, the
// update stamp in B1 and the header on row 3.
var DefaultSheet = SheetOptions{HeaderRow: 3, UpdatedCell: "B1"}

func (o SheetOptions) normalized() SheetOptions {
	if o.HeaderRow <= 0 {
		o.HeaderRow = DefaultSheet.HeaderRow
	}
	if o.UpdatedCell == "" {
		o.UpdatedCell = DefaultSheet.UpdatedCell
	}
	return o
}

// ParseXLSX reads schedule rows from a workbook. Each data row below the
// header becomes one RawRow keyed by header text. Cells are returned raw:
// numbers (including time-of-day serials) as float64, everything else as
// trimmed strings. Fully blank rows are skipped.
func ParseXLSX(body []byte, opts SheetOptions) (Dataset, error) {
	opts = opts.normalized()

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return Dataset{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := opts.Name
	if sheet == "" {
		list := wb.GetSheetList()
		if len(list) == 0 {
			return Dataset{}, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}

	label, err := wb.GetCellValue(sheet, opts.UpdatedCell)
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s!%s: %w", sheet, opts.UpdatedCell, err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = UnknownUpdated
	}

	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Dataset{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < opts.HeaderRow {
		return Dataset{}, fmt.Errorf("sheet %q has no header row %d", sheet, opts.HeaderRow)
	}

	headers := rows[opts.HeaderRow-1]
	out := Dataset{
		Rows:        make([]model.RawRow, 0, len(rows)-opts.HeaderRow),
		LastUpdated: label,
	}
	for _, cells := range rows[opts.HeaderRow:] {
		row := make(model.RawRow, len(headers))
		blank := true
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(cells) {
				continue
			}
			v := cellValue(cells[i])
			if v == nil {
				continue
			}
			row[h] = v
			blank = false
		}
		if blank {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// cellValue converts a raw cell string. Values that look like clock text
// stay strings so the time normalizer sees what the sheet author typed.
func cellValue(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, ":") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
