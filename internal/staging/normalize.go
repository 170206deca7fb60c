package staging

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/workbook"
)

// ResultKind classifies the outcome of normalizing one spreadsheet row.
type ResultKind int

const (
	// Accepted means the row produced a staging record.
	Accepted ResultKind = iota
	// Skipped means the row failed validation; the scan continues.
	Skipped
	// Terminate means the first cell was empty, the sentinel for the end of
	// the sheet's data. The row is not counted as processed.
	Terminate
)

// RowResult is the explicit per-row outcome. The caller decides continuation
// policy from the kind; no validation failure escapes as an error.
type RowResult struct {
	Kind   ResultKind
	Record *Record
	Reason string
}

func accepted(rec *Record) RowResult { return RowResult{Kind: Accepted, Record: rec} }
func skipped(reason string) RowResult {
	return RowResult{Kind: Skipped, Reason: reason}
}

// Normalizer converts raw sheet rows into staging records, emitting
// row-scoped warnings and notes into the run report.
type Normalizer struct {
	rep *report.Report
}

func NewNormalizer(rep *report.Report) *Normalizer {
	return &Normalizer{rep: rep}
}

var samplePattern = regexp.MustCompile(`^[A-Za-z]\d+$`)

// cell returns the trimmed value of a 0-based column, or "" when the row is
// shorter than that.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Lot normalizes one row of the Lots sheet.
//
// Column order: lot number, context, trench, type, date excavated, extra
// info, date uploaded, total number of sherds, recorded, photographed.
func (n *Normalizer) Lot(row []string, rowNr int) RowResult {
	if cell(row, 0) == "" {
		return RowResult{Kind: Terminate}
	}

	lotNr, err := strconv.Atoi(cell(row, 0))
	if err != nil || lotNr <= 0 {
		n.rep.Warnf("Line %d: invalid lot number %q. Line skipped.", rowNr, cell(row, 0))
		return skipped("invalid lot number")
	}
	lot := strconv.Itoa(lotNr)

	context, ok := n.checkContext(row, rowNr, lot)
	if !ok {
		return skipped("invalid context")
	}
	if !n.checkTrench(row, rowNr, lot, context) {
		return skipped("invalid trench")
	}

	rec := &Record{
		LineRef:      rowNr,
		CmType:       CmBulk,
		Lot:          lot,
		Locus:        FormatLocus(context),
		Unit:         cell(row, 2),
		ArchContext:  ArchContext(FormatLocus(context), lot),
		LocalNr:      lotNr,
		Type:         n.checkType(row, rowNr, lot),
		Description:  toText(cell(row, 5)),
		Photographed: cell(row, 9) != "",
	}

	rec.DateExcavated = n.checkDate(cell(row, 4), rowNr, lot, "date excavated", true)
	rec.DateEntered = n.checkDate(cell(row, 6), rowNr, lot, "date uploaded", false)

	if raw := cell(row, 7); raw != "" {
		count, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			n.rep.Infof("Line %d, lot# %s: sherd count %q is not a number. Value dropped.", rowNr, lot, raw)
		} else {
			rec.Count = pgtype.Float8{Float64: count, Valid: true}
			if rec.Type.Valid && rec.Type.String != "ceramic" {
				n.rep.Infof("Line %d, lot# %s: sherd count for a collected material that is not of type 'ceramic'.", rowNr, lot)
			}
		}
	}

	return accepted(rec)
}

// Sample normalizes one row of the Samples sheet.
//
// Column order: Sample Number, context, trench, type, description, date,
// notes, location.
func (n *Normalizer) Sample(row []string, rowNr int) RowResult {
	if cell(row, 0) == "" {
		return RowResult{Kind: Terminate}
	}

	lot := cell(row, 0)
	if !samplePattern.MatchString(lot) {
		n.rep.Warnf("Line %d: invalid sample number %q. Line skipped.", rowNr, lot)
		return skipped("invalid sample number")
	}
	localNr, err := strconv.Atoi(lot[1:])
	if err != nil || localNr <= 0 {
		n.rep.Warnf("Line %d: invalid sample number %q. Line skipped.", rowNr, lot)
		return skipped("invalid sample number")
	}

	context, ok := n.checkContext(row, rowNr, lot)
	if !ok {
		return skipped("invalid context")
	}
	if !n.checkTrench(row, rowNr, lot, context) {
		return skipped("invalid trench")
	}

	rec := &Record{
		LineRef:     rowNr,
		CmType:      CmSample,
		Lot:         lot,
		Locus:       FormatLocus(context),
		Unit:        cell(row, 2),
		ArchDomain:  toText(SampleArchDomain),
		ArchContext: ArchContext(FormatLocus(context), lot),
		LocalNr:     localNr,
		Type:        n.checkType(row, rowNr, lot),
		Location:    toText(cell(row, 7)),
	}

	rec.DateExcavated = n.checkDate(cell(row, 5), rowNr, lot, "date", true)
	// Samples carry no separate entry date; the sampling date doubles as it.
	rec.DateEntered = rec.DateExcavated

	description := cell(row, 4)
	if notes := cell(row, 6); notes != "" {
		if description != "" {
			description += " "
		}
		description += notes
	}
	rec.Description = toText(description)

	return accepted(rec)
}

// checkContext validates the raw context cell against the trench-prefixed
// pattern. Returns the raw context and whether the row may proceed.
func (n *Normalizer) checkContext(row []string, rowNr int, lot string) (string, bool) {
	context := cell(row, 1)
	if context == "" {
		n.rep.Warnf("Line %d, lot# %s: no context. Line skipped.", rowNr, lot)
		return "", false
	}
	if !ValidContext(context) {
		n.rep.Warnf("Line %d, lot# %s: context %q does not look right. Line skipped.", rowNr, lot, context)
		return "", false
	}
	return context, true
}

// checkTrench validates the trench cell. A trench that does not match the
// context's first letter is only a warning, not a skip.
func (n *Normalizer) checkTrench(row []string, rowNr int, lot, context string) bool {
	trench := cell(row, 2)
	if !ValidTrench(trench) {
		n.rep.Warnf("Line %d, lot# %s: trench %q does not look right. Line skipped.", rowNr, lot, trench)
		return false
	}
	if trench != context[:1] {
		n.rep.Warnf("Line %d, lot# %s: trench %q does not match context.", rowNr, lot, trench)
	}
	return true
}

// checkType reads the lower-cased type/category cell; a missing type is a
// warning only.
func (n *Normalizer) checkType(row []string, rowNr int, lot string) pgtype.Text {
	t := strings.ToLower(cell(row, 3))
	if t == "" {
		n.rep.Warnf("Line %d, lot# %s: type is empty.", rowNr, lot)
		return pgtype.Text{}
	}
	return toText(t)
}

// checkDate type-checks a date cell. Non-date values are dropped with an
// informational note; an empty cell warns only when warnEmpty is set.
func (n *Normalizer) checkDate(raw string, rowNr int, lot, fieldName string, warnEmpty bool) pgtype.Timestamp {
	if raw == "" {
		if warnEmpty {
			n.rep.Warnf("Line %d, lot# %s: %s is empty.", rowNr, lot, fieldName)
		}
		return pgtype.Timestamp{}
	}
	t, ok := workbook.ParseDate(raw)
	if !ok {
		n.rep.Infof("Line %d, lot# %s: %s %q is not a date. Value dropped.", rowNr, lot, fieldName, raw)
		return pgtype.Timestamp{}
	}
	return pgtype.Timestamp{Time: t, Valid: true}
}

func toText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// progressMark writes the periodic scan progress to the console: a dot every
// interval rows, a newline every newlineEvery rows.
func progressMark(rep *report.Report, rowNr int) {
	const interval, newlineEvery = 100, 5000
	if rowNr%interval == 0 {
		rep.Progress(".")
	}
	if rowNr%newlineEvery == 0 {
		rep.Progress("\n")
	}
}
