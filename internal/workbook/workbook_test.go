package workbook

import (
	"fmt"
	"testing"
	"time"

	excelize "github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string) *Workbook {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("creating sheet %s: %v", name, err)
			}
		}
		for i, row := range rows {
			cells := make([]any, len(row))
			for j, c := range row {
				cells[j] = c
			}
			if err := f.SetSheetRow(name, fmt.Sprintf("A%d", i+1), &cells); err != nil {
				t.Fatalf("filling sheet %s: %v", name, err)
			}
		}
	}
	return FromFile(f)
}

func TestSheetAccess(t *testing.T) {
	wb := buildWorkbook(t, map[string][][]string{
		"Lots": {
			{"lot number", "context"},
			{"1", "  A101  "},
		},
	})
	defer wb.Close()

	if !wb.HasSheet("Lots") {
		t.Error("HasSheet(Lots) = false")
	}
	if wb.HasSheet("Samples") {
		t.Error("HasSheet(Samples) = true")
	}
	if _, err := wb.Sheet("Samples"); err == nil {
		t.Error("Sheet(Samples) = nil error, want missing-sheet error")
	}

	sheet, err := wb.Sheet("Lots")
	if err != nil {
		t.Fatalf("Sheet(Lots): %v", err)
	}
	if sheet.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", sheet.NumRows())
	}
	if got := sheet.Cell(2, 2); got != "A101" {
		t.Errorf("Cell(2,2) = %q, want trimmed A101", got)
	}
	if got := sheet.Cell(99, 1); got != "" {
		t.Errorf("Cell out of range = %q, want empty", got)
	}
	if row := sheet.Row(99); row != nil {
		t.Errorf("Row out of range = %v, want nil", row)
	}
}

func TestCheckStructure(t *testing.T) {
	t.Run("matching header passes", func(t *testing.T) {
		wb := buildWorkbook(t, map[string][][]string{
			"Samples": {{"sample number", "Context", "TRENCH", "type", "description", "date", "notes", "location"}},
		})
		defer wb.Close()
		sheet, err := wb.Sheet("Samples")
		if err != nil {
			t.Fatal(err)
		}
		if d := CheckStructure(sheet, ExpectedColsSamples); len(d) != 0 {
			t.Errorf("discrepancies = %v, want none", d)
		}
	})

	t.Run("wrong and missing columns are reported", func(t *testing.T) {
		wb := buildWorkbook(t, map[string][][]string{
			"Samples": {{"Sample Number", "context", "square", "type", "description", "date", "notes"}},
		})
		defer wb.Close()
		sheet, err := wb.Sheet("Samples")
		if err != nil {
			t.Fatal(err)
		}
		d := CheckStructure(sheet, ExpectedColsSamples)
		if len(d) != 2 {
			t.Fatalf("discrepancies = %v, want 2", d)
		}
		if d[0].Col != 3 || d[0].Expected != "trench" || d[0].Got != "square" {
			t.Errorf("first discrepancy = %+v", d[0])
		}
		if d[1].Col != 8 || d[1].Got != "" {
			t.Errorf("second discrepancy = %+v", d[1])
		}
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		want   time.Time
		wantOK bool
	}{
		{"7/14/2025", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"07/14/2025", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"2025-07-14", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"14.07.2025", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), false},
		{"7.14.2025", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"Jul 14, 2025", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"7/14/25", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), true},
		{"2025-07-14 13:45:00", time.Date(2025, 7, 14, 13, 45, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"sometime in July", time.Time{}, false},
		{"42", time.Time{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if ok && !got.Equal(tc.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseDateTwoDigitYearPivot(t *testing.T) {
	// A 2-digit year far in the future belongs to the previous century.
	future := time.Now().AddDate(TwoDigitYearPivot+5, 0, 0)
	value := future.Format("1/2/06")

	got, ok := ParseDate(value)
	if !ok {
		t.Fatalf("ParseDate(%q) not recognized", value)
	}
	if got.Year() != future.Year()-100 {
		t.Errorf("ParseDate(%q).Year() = %d, want %d", value, got.Year(), future.Year()-100)
	}
}
