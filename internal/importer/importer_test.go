package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	excelize "github.com/xuri/excelize/v2"

	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/workbook"
)

func buildWorkbook(t *testing.T, sheets []struct {
	name string
	rows [][]string
}) *workbook.Workbook {
	t.Helper()
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			f.SetSheetName("Sheet1", s.name)
		} else {
			if _, err := f.NewSheet(s.name); err != nil {
				t.Fatalf("creating sheet %s: %v", s.name, err)
			}
		}
		for r, row := range s.rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			if err := f.SetSheetRow(s.name, fmt.Sprintf("A%d", r+1), &cells); err != nil {
				t.Fatalf("filling sheet %s: %v", s.name, err)
			}
		}
	}
	return workbook.FromFile(f)
}

func headerRow(cols []string) [][]string {
	return [][]string{cols}
}

func TestRunAnalyzeOnly(t *testing.T) {
	lots := headerRow(workbook.ExpectedColsLots)
	lots = append(lots,
		[]string{"1", "A101", "A", "ceramic", "7/14/2025", "", "", "12", "", ""},
		[]string{"bad", "A102", "A", "ceramic", "7/14/2025", "", "", "", "", ""},
		[]string{"3", "A103", "A", "ceramic", "7/14/2025", "", "", "", "", ""},
	)
	samples := headerRow(workbook.ExpectedColsSamples)
	samples = append(samples, []string{"S1", "B045", "B", "soil", "flotation", "7/14/2025", "", ""})
	artifacts := headerRow(workbook.ExpectedColsArtifacts)
	artifacts = append(artifacts, []string{"3", "A103", "A", "faience", "7/14/2025", "L:15mm", "12 g", "bead", "", ""})

	wb := buildWorkbook(t, []struct {
		name string
		rows [][]string
	}{
		{"Lots", lots},
		{"Samples", samples},
		{"Artifacts", artifacts},
	})
	defer wb.Close()

	rep := report.New(io.Discard)
	imp := New(nil, rep, Options{AnalyzeOnly: true})
	if err := imp.Run(context.Background(), wb, "finds.xlsx"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.Errors() != 0 {
		t.Errorf("Errors = %d, want 0", rep.Errors())
	}
	// The bad lot number row warns but only drops that row.
	if rep.Warnings() == 0 {
		t.Error("expected a warning for the invalid lot number")
	}

	joined := strings.Join(rep.Records(), "\n")
	if !strings.Contains(joined, `2 of 3 rows from sheet "Lots"`) {
		t.Errorf("missing Lots summary in:\n%s", joined)
	}
	if !strings.Contains(joined, `1 of 1 rows from sheet "Samples"`) {
		t.Errorf("missing Samples summary in:\n%s", joined)
	}
}

func TestRunMissingSheet(t *testing.T) {
	wb := buildWorkbook(t, []struct {
		name string
		rows [][]string
	}{
		{"Lots", headerRow(workbook.ExpectedColsLots)},
	})
	defer wb.Close()

	rep := report.New(io.Discard)
	imp := New(nil, rep, Options{AnalyzeOnly: true})
	if err := imp.Run(context.Background(), wb, "finds.xlsx"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Samples and Artifacts are missing.
	if rep.Errors() != 2 {
		t.Errorf("Errors = %d, want 2", rep.Errors())
	}
}

func TestRunStructuralErrorExcludesSheet(t *testing.T) {
	broken := [][]string{{"wrong", "header", "row"}}
	wb := buildWorkbook(t, []struct {
		name string
		rows [][]string
	}{
		{"Lots", broken},
		{"Samples", headerRow(workbook.ExpectedColsSamples)},
		{"Artifacts", headerRow(workbook.ExpectedColsArtifacts)},
	})
	defer wb.Close()

	rep := report.New(io.Discard)
	imp := New(nil, rep, Options{AnalyzeOnly: true})
	if err := imp.Run(context.Background(), wb, "finds.xlsx"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	joined := strings.Join(rep.Records(), "\n")
	if !strings.Contains(joined, `structural errors in the worksheet "Lots"`) {
		t.Errorf("missing structural error summary in:\n%s", joined)
	}
	if strings.Contains(joined, `rows from sheet "Lots"`) {
		t.Errorf("Lots sheet was analyzed despite structural errors:\n%s", joined)
	}
}
