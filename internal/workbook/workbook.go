// Package workbook reads the RLIIM lot spreadsheet and validates its
// structure against the expected sheet layouts.
package workbook

import (
	"fmt"
	"strings"
	"time"

	excelize "github.com/xuri/excelize/v2"
)

// Workbook wraps an open .xlsx file. The whole sheet content is materialized
// on access; the importer processes sheets sequentially and whole.
type Workbook struct {
	f *excelize.File
}

// Open loads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{f: f}, nil
}

// FromFile wraps an already-built excelize file. Used by tests that assemble
// workbooks in memory.
func FromFile(f *excelize.File) *Workbook {
	return &Workbook{f: f}
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// HasSheet reports whether the workbook contains a sheet with the given name.
func (w *Workbook) HasSheet(name string) bool {
	for _, s := range w.f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// Sheet returns the named worksheet with all its rows loaded.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	if !w.HasSheet(name) {
		return nil, fmt.Errorf("there is no sheet %q in this workbook", name)
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return &Sheet{Name: name, rows: rows}, nil
}

// Sheet holds one worksheet's rows. Row and column indices are 1-based to
// match what the operator sees in a spreadsheet application.
type Sheet struct {
	Name string
	rows [][]string
}

// NumRows returns the number of rows in the sheet, including the header.
func (s *Sheet) NumRows() int {
	return len(s.rows)
}

// Row returns the raw cells of a 1-based row, or nil when the row lies
// outside the sheet's populated range.
func (s *Sheet) Row(row int) []string {
	if row < 1 || row > len(s.rows) {
		return nil
	}
	return s.rows[row-1]
}

// Cell returns the trimmed value at (row, col), or "" when the cell lies
// outside the sheet's populated range.
func (s *Sheet) Cell(row, col int) string {
	if row < 1 || row > len(s.rows) {
		return ""
	}
	r := s.rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return strings.TrimSpace(r[col-1])
}

// Date layouts split by year format for proper 2-digit year handling.
// Cells come back from excelize already formatted, so a handful of common
// spreadsheet formats covers what the field teams produce.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
		"1/2/06 15:04", "01/02/06 15:04",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2006-01-02 15:04:05", "1/2/2006 15:04", "01/02/2006 15:04:05",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// TwoDigitYearPivot defines how 2-digit years are interpreted: years that
// would land more than this many years in the future are assumed to belong
// to the previous century.
var TwoDigitYearPivot = 20

// ParseDate interprets a cell value as a date or timestamp. The boolean is
// false when the value does not look like a date at all, which callers treat
// as "value dropped", not as a row error.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}
