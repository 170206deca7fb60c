package workbook

import (
	"fmt"
	"strings"
)

// Expected header rows of the three sheets the importer understands.
// Comparison is case-insensitive but order-sensitive.
var (
	ExpectedColsLots = []string{
		"lot number", "context", "trench", "type", "date excavated", "extra info",
		"date uploaded", "total number of sherds", "recorded", "photographed",
	}
	ExpectedColsSamples = []string{
		"Sample Number", "context", "trench", "type", "description", "date",
		"notes", "location",
	}
	ExpectedColsArtifacts = []string{
		"lot number", "context", "trench", "type", "date excavated",
		"other dimensions", "weight", "description", "date entered", "photographed?",
	}
)

// Discrepancy describes one structural mismatch between a sheet's header row
// and the expected column list.
type Discrepancy struct {
	Row      int
	Col      int
	Expected string
	Got      string
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("row %d, col %d: expected %q, got %q", d.Row, d.Col, d.Expected, d.Got)
}

// CheckStructure compares the sheet's header row against the expected,
// ordered column list. An empty result means the sheet may be imported.
func CheckStructure(s *Sheet, expected []string) []Discrepancy {
	var discrepancies []Discrepancy
	for i, want := range expected {
		got := s.Cell(1, i+1)
		if !strings.EqualFold(got, want) {
			discrepancies = append(discrepancies, Discrepancy{
				Row:      1,
				Col:      i + 1,
				Expected: want,
				Got:      got,
			})
		}
	}
	return discrepancies
}
