/**
 * @description
 * Historical backfill entry point.
 * Imports daily price snapshots for a date range:
 *
 *   archive <start-date> [end-date]    (dates as YYYY-MM-DD)
 *
 * The range is capped at yesterday; days whose snapshot was never published
 * are skipped, any other failure halts the run with exit code 1.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/pipeline
 * - backend/internal/tcgcsv
 */

package main

import (
	"context"
	"os"
	"time"

	"github.com/cardvault-project/backend/internal/config"
	"github.com/cardvault-project/backend/internal/db"
	"github.com/cardvault-project/backend/internal/logger"
	"github.com/cardvault-project/backend/internal/pipeline"
	"github.com/cardvault-project/backend/internal/tcgcsv"
)

func main() {
	if len(os.Args) < 2 {
		logger.Fatal("usage: archive <start-date> [end-date]")
	}

	start, err := time.ParseInLocation(tcgcsv.ArchiveDateLayout, os.Args[1], time.UTC)
	if err != nil {
		logger.Fatal("Malformed start date %q: %v", os.Args[1], err)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if len(os.Args) > 2 {
		end, err = time.ParseInLocation(tcgcsv.ArchiveDateLayout, os.Args[2], time.UTC)
		if err != nil {
			logger.Fatal("Malformed end date %q: %v", os.Args[2], err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	client := tcgcsv.NewClient(cfg)
	opts := pipeline.DefaultOptions()
	reconciler := pipeline.NewReconciler(pgDB, opts)
	writer := pipeline.NewPriceWriter(pgDB, reconciler, opts)
	importer := pipeline.NewArchiveImporter(client, writer)

	logger.Info("🚀 Backfilling %s through %s...",
		start.Format(tcgcsv.ArchiveDateLayout), end.Format(tcgcsv.ArchiveDateLayout))

	summary, err := importer.Run(context.Background(), start, end)
	if err != nil {
		logger.Fatal("Backfill failed (%d succeeded, %d skipped before the error): %v",
			summary.Succeeded, summary.Skipped, err)
	}

	logger.Info("✅ Backfill complete: %d succeeded, %d skipped", summary.Succeeded, summary.Skipped)
}
