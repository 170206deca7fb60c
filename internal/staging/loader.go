package staging

import (
	"context"
	"fmt"

	"github.com/rliim/cmimport/internal/database"
	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/workbook"
)

// TableName is the staging relation. It is dropped and recreated at the
// start of every run, so a rerun always starts from a clean slate.
const TableName = "rliim_cm_import"

const createTableSQL = `
	create table ` + TableName + ` (
		line_ref numeric not null,
		cm_type varchar not null,
		lot varchar primary key not null,
		locus varchar not null,
		unit varchar not null,
		arch_domain varchar,
		arch_context varchar not null,
		local_nr numeric not null,
		"type" varchar,
		date_excavated timestamp,
		date_entered timestamp,
		photographed boolean,
		description varchar,
		"count" numeric,
		location varchar,
		sf_type varchar,
		sf_measures varchar,
		sf_length_mm numeric,
		sf_height_mm numeric,
		sf_width_mm numeric,
		sf_thickness_mm numeric,
		sf_diameter_mm numeric,
		sf_diameter_perf_mm numeric,
		sf_weight numeric,
		sf_description varchar,
		sf_date_excavated timestamp,
		sf_date_entered timestamp,
		sf_photographed boolean
	)`

const insertRecordSQL = `
	insert into ` + TableName + `
		(line_ref, cm_type, lot, locus, unit, arch_domain, arch_context, local_nr,
		 "type", date_excavated, date_entered, photographed, description, "count", location)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const updateSmallFindSQL = `
	update ` + TableName + `
	set line_ref = $1,
		cm_type = $2,
		sf_type = $3,
		sf_measures = $4,
		sf_length_mm = $5,
		sf_height_mm = $6,
		sf_width_mm = $7,
		sf_thickness_mm = $8,
		sf_diameter_mm = $9,
		sf_diameter_perf_mm = $10,
		sf_weight = $11,
		sf_description = $12,
		sf_date_excavated = $13,
		sf_date_entered = $14,
		sf_photographed = $15
	where lot = $16`

// SheetCounts reports how a sheet scan went, for the operator summary.
type SheetCounts struct {
	Imported int
	Scanned  int
}

// Loader persists normalized rows into the staging relation.
type Loader struct {
	db   database.DBTX
	rep  *report.Report
	norm *Normalizer

	// MaxRows stops a sheet scan after that many data rows when positive.
	MaxRows int
}

func NewLoader(db database.DBTX, rep *report.Report) *Loader {
	return &Loader{db: db, rep: rep, norm: NewNormalizer(rep)}
}

// Reset drops and recreates the staging relation.
func (l *Loader) Reset(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, "drop table if exists "+TableName); err != nil {
		return fmt.Errorf("dropping staging table: %w", err)
	}
	if _, err := l.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("creating staging table: %w", err)
	}
	return nil
}

// ImportLots scans the Lots sheet and inserts every accepted row.
func (l *Loader) ImportLots(ctx context.Context, sheet *workbook.Sheet) (SheetCounts, error) {
	return l.importRecords(ctx, sheet, l.norm.Lot)
}

// ImportSamples scans the Samples sheet and inserts every accepted row.
func (l *Loader) ImportSamples(ctx context.Context, sheet *workbook.Sheet) (SheetCounts, error) {
	return l.importRecords(ctx, sheet, l.norm.Sample)
}

// importRecords drives a lot/sample sheet scan. Rows are processed in source
// order; a duplicate lot number rolls back only that insert, is remembered,
// and purges every row sharing the lot at sheet end so no ambiguous
// duplicate survives into the merge.
func (l *Loader) importRecords(ctx context.Context, sheet *workbook.Sheet, normalize func([]string, int) RowResult) (SheetCounts, error) {
	var counts SheetCounts
	var toDelete []string

scan:
	for rowNr := 2; rowNr <= sheet.NumRows(); rowNr++ {
		progressMark(l.rep, rowNr)
		if l.MaxRows > 0 && counts.Scanned >= l.MaxRows {
			l.rep.Infof("Reached maximum row %d: done.", rowNr)
			break
		}

		res := normalize(sheet.Row(rowNr), rowNr)
		switch res.Kind {
		case Terminate:
			l.rep.Infof("Found empty first cell in row %d: done.", rowNr)
			break scan
		case Skipped:
			counts.Scanned++
			continue
		}
		counts.Scanned++

		rec := res.Record
		_, err := l.db.Exec(ctx, insertRecordSQL,
			rec.LineRef, rec.CmType, rec.Lot, rec.Locus, rec.Unit,
			rec.ArchDomain, rec.ArchContext, rec.LocalNr, rec.Type,
			rec.DateExcavated, rec.DateEntered, rec.Photographed,
			rec.Description, rec.Count, rec.Location)
		if err != nil {
			if database.IsUniqueViolation(err) {
				l.rep.Errorf("Line %d, lot# %s: duplicate lot number. All lines with this lot number will be skipped.",
					rec.LineRef, rec.Lot)
				toDelete = append(toDelete, rec.Lot)
				continue
			}
			l.rep.Errorf("Line %d, lot# %s: SQL error '%v'. Aborting.", rec.LineRef, rec.Lot, err)
			return counts, fmt.Errorf("inserting staging row for lot %s: %w", rec.Lot, err)
		}
		counts.Imported++
	}

	if err := l.purgeDuplicates(ctx, toDelete, &counts); err != nil {
		return counts, err
	}

	l.rep.Successf("Successfully imported %d of %d rows from sheet %q.", counts.Imported, counts.Scanned, sheet.Name)
	return counts, nil
}

// purgeDuplicates deletes every staging row whose lot number collided during
// the scan and decrements the success count accordingly.
func (l *Loader) purgeDuplicates(ctx context.Context, lots []string, counts *SheetCounts) error {
	for _, lot := range lots {
		tag, err := l.db.Exec(ctx, "delete from "+TableName+" where lot = $1", lot)
		if err != nil {
			return fmt.Errorf("purging duplicate lot %s: %w", lot, err)
		}
		counts.Imported -= int(tag.RowsAffected())
	}
	if len(lots) > 0 {
		l.rep.Infof("Deleted %d lot numbers because they existed more than once in the source.", len(lots))
	}
	return nil
}

// ImportArtifacts scans the Artifacts sheet. Every accepted row must
// reconcile with exactly one staging record created by the lot pass; the
// staging row is then updated in place with the small-find fields.
func (l *Loader) ImportArtifacts(ctx context.Context, sheet *workbook.Sheet) (SheetCounts, error) {
	var counts SheetCounts

scan:
	for rowNr := 2; rowNr <= sheet.NumRows(); rowNr++ {
		progressMark(l.rep, rowNr)
		if l.MaxRows > 0 && counts.Scanned >= l.MaxRows {
			l.rep.Infof("Reached maximum row %d: done.", rowNr)
			break
		}

		res := l.norm.Artifact(sheet.Row(rowNr), rowNr)
		switch res.Kind {
		case Terminate:
			l.rep.Infof("Found empty first cell in row %d: done.", rowNr)
			break scan
		case Skipped:
			counts.Scanned++
			continue
		}
		counts.Scanned++

		upd := res.Update
		ok, err := l.reconcile(ctx, upd, rowNr)
		if err != nil {
			return counts, err
		}
		if !ok {
			continue
		}

		_, err = l.db.Exec(ctx, updateSmallFindSQL,
			upd.LineRef, CmSmallFind, upd.SfType, upd.SfMeasures,
			upd.LengthMM, upd.HeightMM, upd.WidthMM, upd.ThicknessMM,
			upd.DiameterMM, upd.DiameterPerfMM, upd.Weight,
			upd.SfDescription, upd.SfDateExcavated, upd.SfDateEntered,
			upd.SfPhotographed, upd.Lot)
		if err != nil {
			l.rep.Errorf("Line %d, lot# %s: SQL error '%v'. Aborting.", rowNr, upd.Lot, err)
			return counts, fmt.Errorf("updating staging row for lot %s: %w", upd.Lot, err)
		}
		counts.Imported++
	}

	l.rep.Successf("Successfully imported %d of %d rows from sheet %q.", counts.Imported, counts.Scanned, sheet.Name)
	return counts, nil
}

// reconcile locates the staging record the lot pass created for this lot
// number. Zero matches, more than one match, or a context mismatch is a hard
// row error: the artifact row is skipped.
func (l *Loader) reconcile(ctx context.Context, upd *SmallFindUpdate, rowNr int) (bool, error) {
	var matches int
	if err := l.db.QueryRow(ctx, "select count(*) from "+TableName+" where lot = $1", upd.Lot).Scan(&matches); err != nil {
		return false, fmt.Errorf("counting staging rows for lot %s: %w", upd.Lot, err)
	}
	switch {
	case matches == 0:
		l.rep.Errorf("Line %d, lot# %s: there is no record in Lots that matches line %d in Artifacts. Line skipped.",
			rowNr, upd.Lot, rowNr)
		return false, nil
	case matches > 1:
		l.rep.Errorf("Line %d, lot# %s: there is more than one record in Lots that matches line %d in Artifacts. "+
			"That should not be the case at all. Line skipped.", rowNr, upd.Lot, rowNr)
		return false, nil
	}

	var locus string
	if err := l.db.QueryRow(ctx, "select locus from "+TableName+" where lot = $1", upd.Lot).Scan(&locus); err != nil {
		return false, fmt.Errorf("reading staging locus for lot %s: %w", upd.Lot, err)
	}
	if locus != upd.Locus {
		l.rep.Errorf("Line %d, lot# %s: the context in Artifacts does not match the context in Lots. Line skipped.",
			rowNr, upd.Lot)
		return false, nil
	}

	return true, nil
}
