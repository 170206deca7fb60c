package kiosk

import (
	"context"
	"fmt"

	"github.com/rliim/cmimport/internal/database"
	"github.com/rliim/cmimport/internal/report"
)

// eraseStatements remove, in dependency order, every production row a former
// run of this pipeline created. Only rows carrying the import marker are
// touched.
var eraseStatements = []string{
	`delete from small_find
	 where uid_cm in (select uid from collected_material where dearregistrar = $1)`,
	`delete from collected_material_photo
	 where uid_cm in (select uid from collected_material where dearregistrar = $1)`,
	`delete from collected_material where dearregistrar = $1`,
}

// EraseFormerImport deletes all production rows tagged with the import
// marker, in one transaction. Nothing else is touched.
func EraseFormerImport(ctx context.Context, db database.Beginner, rep *report.Report) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning erase transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range eraseStatements {
		if _, err := tx.Exec(ctx, stmt, ImportMarker); err != nil {
			rep.Errorf("Erasing former import failed: %v", err)
			return fmt.Errorf("erasing former import: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing erase: %w", err)
	}
	rep.Infof("Successfully erased former import.")
	return nil
}
