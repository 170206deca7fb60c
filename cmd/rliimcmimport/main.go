// Command rliimcmimport imports the RLIIM lot spreadsheet into the kiosk's
// production database: structural validation, staging load, and an optional
// set-based merge into collected_material/small_find.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rliim/cmimport/internal/config"
	"github.com/rliim/cmimport/internal/database"
	"github.com/rliim/cmimport/internal/importer"
	"github.com/rliim/cmimport/internal/kiosk"
	"github.com/rliim/cmimport/internal/logging"
	"github.com/rliim/cmimport/internal/report"
	"github.com/rliim/cmimport/internal/workbook"
)

type options struct {
	db                string
	user              string
	doImport          bool
	noContextCheck    bool
	logFile           string
	dev               bool
	noCommit          bool
	applyImports      bool
	eraseFormerImport bool
	maxRows           int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "rliimcmimport <kiosk-dir> <workbook.xlsx>",
		Short: "Import the RLIIM lot spreadsheet into the kiosk database",
		Long: `rliimcmimport imports lots, samples and artifacts from an Excel workbook
into the staging relation of a RLIIM kiosk and optionally merges them into
the production collected_material/small_find tables.

<kiosk-dir> must point to the kiosk base directory (in which either a
config/kiosk_config.yml or a config/sync_config.yml is expected).
<workbook.xlsx> must point to an Excel file with the expected Lots, Samples
and Artifacts sheets.

Without --import the tool only validates and analyzes the workbook.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  false,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "confirm the database name to import into (must match the kiosk config)")
	cmd.Flags().StringVar(&opts.user, "user", "", "recording user for created entries, e.g. \"lkh\" (required)")
	cmd.Flags().BoolVarP(&opts.doImport, "import", "i", false, "import rows into staging (default is analyze only)")
	cmd.Flags().BoolVar(&opts.noContextCheck, "no-context-check", false, "skip checking that contexts are known in the database")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "path of the log file (default: <workbook dir>/rliimcmimport.log)")
	cmd.Flags().BoolVarP(&opts.dev, "dev", "d", false, "additional output useful during development")
	cmd.Flags().BoolVar(&opts.noCommit, "no-commit", false, "do not commit the production merge")
	cmd.Flags().BoolVar(&opts.applyImports, "apply-imports", false, "merge the staged records into collected material after the import")
	cmd.Flags().BoolVar(&opts.eraseFormerImport, "erase-former-import", false, "delete all production records created by a former import")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 0, "stop each sheet scan after this many rows (0 = no limit)")

	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func run(ctx context.Context, kioskDir, workbookFile string, opts options) error {
	if info, err := os.Stat(kioskDir); err != nil || !info.IsDir() {
		return fmt.Errorf("kiosk directory %s does not seem to exist or is not a valid directory", kioskDir)
	}
	if _, err := os.Stat(workbookFile); err != nil {
		return fmt.Errorf("the path or Excel file %s does not exist", workbookFile)
	}

	// A .env next to the working directory may supply the database password.
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load(kioskDir)
	if err != nil {
		return err
	}
	if opts.db != "" {
		if cfg.Kiosk.DatabaseName != opts.db {
			return fmt.Errorf("configured database does not match %q (it's %q)", opts.db, cfg.Kiosk.DatabaseName)
		}
	} else if !strings.EqualFold(cfg.Kiosk.DatabaseName, config.DefaultDatabase) {
		return fmt.Errorf("configured database must be %q, which is not the case (it's %q); use --db to confirm",
			config.DefaultDatabase, cfg.Kiosk.DatabaseName)
	}

	level := cfg.Logging.Level
	if opts.dev {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format)

	runID := uuid.New().String()
	logger := logging.WithRun(runID)
	logger.Debug("configuration loaded", "config", cfg.String())

	rep := report.New(os.Stdout)
	rep.Banner("RLIIM Collected Material Import Tool")
	rep.Successf("Run %s", runID)
	rep.Successf("Operating on database %s", cfg.Kiosk.DatabaseName)
	rep.Successf("Importing file %s", workbookFile)

	logPath := opts.logFile
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(workbookFile), "rliimcmimport.log")
	}

	err = runPipeline(ctx, cfg, workbookFile, opts, rep, logger)

	if writeErr := rep.WriteFile(logPath); writeErr != nil {
		logger.Error("writing log file failed", "error", writeErr)
		if err == nil {
			err = writeErr
		}
	}
	return err
}

func runPipeline(ctx context.Context, cfg *config.Config, workbookFile string, opts options, rep *report.Report, logger *slog.Logger) error {
	pool, err := database.Connect(ctx, &cfg.Kiosk)
	if err != nil {
		rep.Errorf("%v", err)
		return err
	}
	defer pool.Close()
	logger.Info("connected to database", "name", cfg.Kiosk.DatabaseName)

	wb, err := workbook.Open(workbookFile)
	if err != nil {
		rep.Errorf("%v", err)
		return err
	}
	defer wb.Close()
	rep.Successf("Using input file %s", workbookFile)

	imp := importer.New(pool, rep, importer.Options{
		AnalyzeOnly: !opts.doImport,
		MaxRows:     opts.maxRows,
	})
	if err := imp.Run(ctx, wb, filepath.Base(workbookFile)); err != nil {
		return err
	}

	if opts.eraseFormerImport {
		if err := kiosk.EraseFormerImport(ctx, pool, rep); err != nil {
			return err
		}
	}

	if opts.applyImports && opts.doImport {
		if !opts.noContextCheck {
			if err := kiosk.CheckContexts(ctx, pool, rep); err != nil {
				return err
			}
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning import transaction: %w", err)
		}
		// With --no-commit the merge runs but the deferred rollback
		// discards it.
		defer tx.Rollback(ctx)

		merger := kiosk.NewMerger(rep, opts.user)
		if err := merger.Apply(ctx, tx, !opts.noCommit); err != nil {
			return err
		}
	}

	rep.Banner("")
	rep.Successf("Done: %d warning(s), %d error(s).", rep.Warnings(), rep.Errors())
	return nil
}
