// Package kiosk merges validated staging rows into the production schema of
// the RLIIM kiosk: collected_material and its dependent small_find rows.
package kiosk

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rliim/cmimport/internal/database"
	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/staging"
)

// ImportMarker tags every production record this pipeline creates, in the
// dearregistrar column. Erasing a former import selects on it.
const ImportMarker = "imported by rliim kiosk bridge"

// Time-zone lookup keys of the production schema. These are externally
// defined identifiers in the kiosk's time-zone table; they are carried
// verbatim, never derived.
const (
	// DefaultTimezoneCode tags rows stamped with the current server time
	// (no entry date was supplied; policy default is US/Eastern).
	DefaultTimezoneCode = 99401495

	// ExplicitEntryTimezoneCode tags rows whose entry date came verbatim
	// from the spreadsheet.
	ExplicitEntryTimezoneCode = 98284531
)

// insertCollectedMaterialSQL creates one collected_material row for every
// staging row whose locus exists in production and whose arch_context does
// not (anti-join): reruns insert nothing. Placeholders: $1 import marker,
// $2 recording user. The timestamp policy branches on whether an entry date
// was supplied; both branches produce a complete audit timestamp.
var insertCollectedMaterialSQL = fmt.Sprintf(`
	insert into collected_material(uid_locus, type, description, quantity, isobject, date, storage,
	                               status_todo, status_done, dearregistrar, created, modified, modified_tz,
	                               modified_ww, modified_by, arch_domain, arch_context, cm_type)
	select locus.uid,
	       rliim.type,
	       concat_ws(' ', rliim.description, rliim.sf_description,
	                 case when rliim.sf_diameter_perf_mm is null then null
	                      else 'diameter perf.: ' || rliim.sf_diameter_perf_mm end),
	       rliim.count,
	       case when rliim.cm_type = '%s' then 1 else 0 end,
	       coalesce(rliim.sf_date_excavated, rliim.date_excavated),
	       rliim.location,
	       case when rliim.photographed then 'P' else '' end,
	       case when rliim.photographed then 'P' else '' end,
	       $1,
	       coalesce(coalesce(rliim.sf_date_entered, rliim.date_entered), now() at time zone 'US/Eastern'),
	       case when coalesce(rliim.sf_date_entered, rliim.date_entered) is null then now()
	            else coalesce(rliim.sf_date_entered, rliim.date_entered) end,
	       case when coalesce(rliim.sf_date_entered, rliim.date_entered) is null then %d else %d end,
	       case when coalesce(rliim.sf_date_entered, rliim.date_entered) is null then now() at time zone 'US/Eastern'
	            else coalesce(rliim.sf_date_entered, rliim.date_entered) end,
	       $2, rliim.arch_domain,
	       rliim.arch_context,
	       rliim.cm_type
	from %s rliim
	     inner join locus on rliim.locus = locus.arch_context
	     left outer join collected_material on rliim.arch_context = collected_material.arch_context
	where collected_material.arch_context is null and rliim.locus is not null`,
	staging.CmSmallFind, DefaultTimezoneCode, ExplicitEntryTimezoneCode, staging.TableName)

// insertSmallFindsSQL creates one small_find for every small-find
// collected_material without one. Placeholder: $1 recording user.
var insertSmallFindsSQL = fmt.Sprintf(`
	insert into small_find(uid_cm, material, length, width, thickness, weight, height, diameter,
	                       id_registrar, created, modified, modified_tz, modified_ww, modified_by)
	select cm.uid, rliim.sf_type, rliim.sf_length_mm, rliim.sf_width_mm, rliim.sf_thickness_mm,
	       rliim.sf_weight, rliim.sf_height_mm, rliim.sf_diameter_mm, $1,
	       coalesce(rliim.sf_date_entered, now() at time zone 'US/Eastern'),
	       case when rliim.sf_date_entered is null then now() else rliim.sf_date_entered end,
	       case when rliim.sf_date_entered is null then %d else %d end,
	       coalesce(rliim.sf_date_entered, now() at time zone 'US/Eastern'),
	       $1
	from %s rliim
	     inner join collected_material cm on rliim.arch_context = cm.arch_context
	where cm.cm_type = '%s' and cm.uid not in (select uid_cm from small_find)`,
	DefaultTimezoneCode, ExplicitEntryTimezoneCode, staging.TableName, staging.CmSmallFind)

// analyzeSQL previews how many new collected materials the merge would
// create, grouped by excavation unit. Operator visibility only.
var analyzeSQL = fmt.Sprintf(`
	select unit.arch_context, count(distinct locus.arch_context) loci, count(rliim.arch_context) cms
	from %s rliim
	     inner join locus on rliim.locus = locus.arch_context
	     inner join unit on locus.uid_unit = unit.uid
	     left outer join collected_material on rliim.arch_context = collected_material.arch_context
	where collected_material.arch_context is null
	group by unit.arch_context`, staging.TableName)

// unknownLociSQL lists staging loci with no production counterpart; their
// rows would silently fall out of the merge's inner join.
var unknownLociSQL = fmt.Sprintf(`
	select distinct rliim.locus
	from %s rliim
	     left outer join locus on rliim.locus = locus.arch_context
	where locus.arch_context is null
	order by rliim.locus`, staging.TableName)

// Merger performs the set-based, transactional merge from staging into the
// production entities.
type Merger struct {
	rep *report.Report

	// User is the recording user written to modified_by/id_registrar.
	User string
}

func NewMerger(rep *report.Report, user string) *Merger {
	return &Merger{rep: rep, User: user}
}

// Apply runs the two ordered production inserts inside one savepoint on the
// given outer transaction. On any error the savepoint is rolled back and —
// when commit is set — the outer transaction with it; on success the
// savepoint is released and, when commit is set, the outer transaction
// commits. Rerunning a successful merge inserts zero rows.
func (m *Merger) Apply(ctx context.Context, outer pgx.Tx, commit bool) error {
	sp, err := outer.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning savepoint: %w", err)
	}

	if err := m.merge(ctx, sp); err != nil {
		m.rep.Errorf("Collected material import failed: %v", err)
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			m.rep.Errorf("Rolling back savepoint failed: %v", rbErr)
		}
		if commit {
			if rbErr := outer.Rollback(ctx); rbErr != nil {
				m.rep.Errorf("Rolling back transaction failed: %v", rbErr)
			}
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	if commit {
		if err := outer.Commit(ctx); err != nil {
			return fmt.Errorf("committing import: %w", err)
		}
	}
	return nil
}

// merge executes the analyze preview and both inserts on the savepoint.
func (m *Merger) merge(ctx context.Context, db database.DBTX) error {
	rows, err := db.Query(ctx, analyzeSQL)
	if err != nil {
		return fmt.Errorf("analyzing staged rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var unit string
		var loci, cms int64
		if err := rows.Scan(&unit, &loci, &cms); err != nil {
			return fmt.Errorf("scanning analyze row: %w", err)
		}
		m.rep.Infof("Collected material import: trench %s gets %d new cms in %d loci.", unit, cms, loci)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("analyzing staged rows: %w", err)
	}
	rows.Close()

	tag, err := db.Exec(ctx, insertCollectedMaterialSQL, ImportMarker, m.User)
	if err != nil {
		return fmt.Errorf("inserting collected materials: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		m.rep.Infof("Collected material import: import of %d collected materials successful.", n)
	} else {
		m.rep.Infof("Collected material import: note that no new collected materials were added.")
	}

	tag, err = db.Exec(ctx, insertSmallFindsSQL, m.User)
	if err != nil {
		return fmt.Errorf("inserting small finds: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		m.rep.Successf("Collected material import successful: added %d small find records.", n)
	} else {
		m.rep.Successf("Collected material import successful.")
	}

	return nil
}

// CheckContexts warns about staging loci unknown to the production schema.
// Rows in unknown loci never survive the merge's locus join, so the operator
// should hear about them before deciding to apply.
func CheckContexts(ctx context.Context, db database.DBTX, rep *report.Report) error {
	rows, err := db.Query(ctx, unknownLociSQL)
	if err != nil {
		return fmt.Errorf("checking staged contexts: %w", err)
	}
	defer rows.Close()

	unknown := 0
	for rows.Next() {
		var locus string
		if err := rows.Scan(&locus); err != nil {
			return fmt.Errorf("scanning context row: %w", err)
		}
		rep.Warnf("Context %s is not a known context in the database.", locus)
		unknown++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checking staged contexts: %w", err)
	}
	if unknown == 0 {
		rep.Infof("All staged contexts are known in the database.")
	}
	return nil
}
