// Package importer drives one import run: structure validation of the
// workbook, then the per-sheet staging passes in dependency order.
package importer

import (
	"context"
	"fmt"

	"github.com/rliim/cmimport/internal/database"
	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/staging"
	"github.com/rliim/cmimport/internal/workbook"
)

// The three sheets of a lot workbook, in import order. The Lots sheet must
// come before Artifacts: the artifact pass updates staging rows the lot
// pass created.
var sheetOrder = []struct {
	name     string
	expected []string
}{
	{"Lots", workbook.ExpectedColsLots},
	{"Samples", workbook.ExpectedColsSamples},
	{"Artifacts", workbook.ExpectedColsArtifacts},
}

// Options configure one run.
type Options struct {
	// AnalyzeOnly scans and validates without touching the database.
	AnalyzeOnly bool

	// MaxRows stops each sheet scan after that many data rows when positive.
	MaxRows int
}

// Importer validates a workbook and loads its sheets into staging.
type Importer struct {
	db   database.DBTX
	rep  *report.Report
	opts Options
}

func New(db database.DBTX, rep *report.Report, opts Options) *Importer {
	return &Importer{db: db, rep: rep, opts: opts}
}

// Run processes the whole workbook. Structural errors exclude a sheet from
// the import but do not abort the run; database errors during a sheet scan
// do.
func (imp *Importer) Run(ctx context.Context, wb *workbook.Workbook, workbookName string) error {
	imp.rep.Banner(fmt.Sprintf("Workbook '%s'", workbookName))

	sheets := make(map[string]*workbook.Sheet)
	for _, s := range sheetOrder {
		sheet, err := wb.Sheet(s.name)
		if err != nil {
			imp.rep.Errorf("%v", err)
			continue
		}
		if discrepancies := workbook.CheckStructure(sheet, s.expected); len(discrepancies) > 0 {
			for _, d := range discrepancies {
				imp.rep.Errorf("Sheet %q: %s", s.name, d)
			}
			imp.rep.Errorf("There are structural errors in the worksheet %q: sheet not imported.", s.name)
			continue
		}
		imp.rep.Infof("Worksheet structure for sheet %q okay.", s.name)
		sheets[s.name] = sheet
	}

	if imp.opts.AnalyzeOnly {
		imp.rep.Infof("Analyze-only mode: no rows are written.")
		return imp.analyze(sheets)
	}

	loader := staging.NewLoader(imp.db, imp.rep)
	loader.MaxRows = imp.opts.MaxRows

	if err := loader.Reset(ctx); err != nil {
		return err
	}

	if sheet, ok := sheets["Lots"]; ok {
		imp.rep.Infof("Importing worksheet Lots:")
		if _, err := loader.ImportLots(ctx, sheet); err != nil {
			return err
		}
	}
	if sheet, ok := sheets["Samples"]; ok {
		imp.rep.Infof("Importing worksheet Samples:")
		if _, err := loader.ImportSamples(ctx, sheet); err != nil {
			return err
		}
	}
	if sheet, ok := sheets["Artifacts"]; ok {
		if _, lotsOK := sheets["Lots"]; !lotsOK {
			imp.rep.Errorf("Sheet Artifacts cannot be imported without the Lots sheet: sheet skipped.")
			return nil
		}
		imp.rep.Infof("Importing worksheet Artifacts:")
		if _, err := loader.ImportArtifacts(ctx, sheet); err != nil {
			return err
		}
	}

	return nil
}

// analyze runs the row normalizers over the accepted sheets purely for their
// warnings; nothing is persisted and the artifact pass cannot reconcile, so
// it only reports row counts.
func (imp *Importer) analyze(sheets map[string]*workbook.Sheet) error {
	norm := staging.NewNormalizer(imp.rep)
	for _, s := range sheetOrder[:2] {
		sheet, ok := sheets[s.name]
		if !ok {
			continue
		}
		imp.rep.Infof("Analyzing worksheet %s:", s.name)
		accepted, scanned := 0, 0
		for rowNr := 2; rowNr <= sheet.NumRows(); rowNr++ {
			if imp.opts.MaxRows > 0 && scanned >= imp.opts.MaxRows {
				break
			}
			var res staging.RowResult
			if s.name == "Lots" {
				res = norm.Lot(sheet.Row(rowNr), rowNr)
			} else {
				res = norm.Sample(sheet.Row(rowNr), rowNr)
			}
			if res.Kind == staging.Terminate {
				break
			}
			scanned++
			if res.Kind == staging.Accepted {
				accepted++
			}
		}
		imp.rep.Successf("%d of %d rows from sheet %q would be imported.", accepted, scanned, s.name)
	}

	if sheet, ok := sheets["Artifacts"]; ok {
		imp.rep.Infof("Analyzing worksheet Artifacts:")
		accepted, scanned := 0, 0
		for rowNr := 2; rowNr <= sheet.NumRows(); rowNr++ {
			if imp.opts.MaxRows > 0 && scanned >= imp.opts.MaxRows {
				break
			}
			res := norm.Artifact(sheet.Row(rowNr), rowNr)
			if res.Kind == staging.Terminate {
				break
			}
			scanned++
			if res.Kind == staging.Accepted {
				accepted++
			}
		}
		imp.rep.Successf("%d of %d rows from sheet \"Artifacts\" pass row validation (staging reconciliation not checked).", accepted, scanned)
	}

	return nil
}
