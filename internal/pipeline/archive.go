/**
 * @description
 * Historical backfill importer.
 * Walks a date range, downloads each day's compressed price snapshot,
 * extracts it, and replays the per-group price files through the same
 * reconciler/writer path the live feed uses.
 *
 * @dependencies
 * - github.com/bodgit/sevenzip: 7z extraction
 * - backend/internal/tcgcsv
 * - backend/internal/logger
 *
 * @notes
 * - A day moves through pending -> downloading -> extracting -> importing ->
 *   cleaning -> done. A confirmed 404 marks the day skipped; any other
 *   failure halts the whole range.
 * - Per-day temp files are removed best-effort; the working directory is
 *   removed on exit even after an unrecoverable failure.
 */

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/cardvault-project/backend/internal/logger"
	"github.com/cardvault-project/backend/internal/tcgcsv"
)

type ArchiveImporter struct {
	Client *tcgcsv.Client
	Writer *PriceWriter
}

func NewArchiveImporter(client *tcgcsv.Client, writer *PriceWriter) *ArchiveImporter {
	return &ArchiveImporter{Client: client, Writer: writer}
}

// ImportSummary counts per-day outcomes of a backfill run.
type ImportSummary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Run imports daily snapshots from start through end, capped at yesterday
// since the live feed covers today. The first non-404 failure halts the
// range.
func (imp *ArchiveImporter) Run(ctx context.Context, start, end time.Time) (ImportSummary, error) {
	var summary ImportSummary

	workDir, err := os.MkdirTemp("", "price-archive-*")
	if err != nil {
		return summary, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Error("⚠️ Failed to remove working directory %s: %v", workDir, err)
		}
	}()

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if end.After(yesterday) {
		end = yesterday
	}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		day := date.Format(tcgcsv.ArchiveDateLayout)
		err := imp.importDay(ctx, date, workDir)
		switch {
		case err == nil:
			summary.Succeeded++
			logger.Info("✅ %s imported", day)
		case errors.Is(err, tcgcsv.ErrArchiveNotFound):
			summary.Skipped++
			logger.Info("⏭️ %s: no archive published, skipping", day)
		default:
			summary.Failed++
			logger.Error("❌ %s failed: %v", day, err)
			return summary, fmt.Errorf("backfill halted at %s: %w", day, err)
		}
	}

	logger.Info("Backfill summary: %d succeeded, %d skipped, %d failed",
		summary.Succeeded, summary.Skipped, summary.Failed)
	return summary, nil
}

// importDay runs one date through the download/extract/import/clean states.
func (imp *ArchiveImporter) importDay(ctx context.Context, date time.Time, workDir string) error {
	day := date.Format(tcgcsv.ArchiveDateLayout)

	logger.Info("⬇️ %s: downloading...", day)
	archivePath, err := imp.Client.DownloadArchive(ctx, date, workDir)
	if err != nil {
		return err
	}

	extractDir := filepath.Join(workDir, day)

	// Cleanup is best-effort regardless of outcome.
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			logger.Error("⚠️ Failed to remove %s: %v", archivePath, err)
		}
		if err := os.RemoveAll(extractDir); err != nil {
			logger.Error("⚠️ Failed to remove %s: %v", extractDir, err)
		}
	}()

	logger.Info("📦 %s: extracting...", day)
	if err := extract7z(archivePath, extractDir); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	logger.Info("📥 %s: importing...", day)
	if err := imp.importExtracted(ctx, extractDir, date); err != nil {
		return err
	}

	logger.Info("🧹 %s: cleaning up...", day)
	return nil
}

// importExtracted walks the extracted {date}/{categoryId}/{groupId}/prices
// layout and replays every group file through the archive-mode writer.
func (imp *ArchiveImporter) importExtracted(ctx context.Context, extractDir string, date time.Time) error {
	root := filepath.Join(extractDir, date.Format(tcgcsv.ArchiveDateLayout))
	if _, err := os.Stat(root); os.IsNotExist(err) {
		// Some snapshots omit the top-level date directory.
		root = extractDir
	}

	var total WriteStats
	groupFiles := 0

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "prices" {
			return nil
		}

		prices, err := readPriceFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		stats, err := imp.Writer.WriteArchive(ctx, prices, date)
		total = total.Add(stats)
		if err != nil {
			return err
		}
		groupFiles++
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("%s: %d group files, %d prices inserted, %d missing products, %d unresolved subtypes",
		date.Format(tcgcsv.ArchiveDateLayout), groupFiles, total.Inserted, total.MissingProducts, total.UnresolvedSubtypes)
	return nil
}

// readPriceFile decodes one extracted per-group prices file, which carries
// the same envelope shape as the live prices endpoint.
func readPriceFile(path string) ([]tcgcsv.FeedPrice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var env tcgcsv.Envelope[tcgcsv.FeedPrice]
	if err := json.NewDecoder(f).Decode(&env); err != nil {
		return nil, fmt.Errorf("malformed prices file: %w", err)
	}
	if !env.Success {
		return nil, &tcgcsv.APIError{URL: path, Errors: env.Errors}
	}
	return env.Results, nil
}

// extract7z unpacks a 7z archive into destDir.
func extract7z(archivePath, destDir string) error {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, file := range r.File {
		target := filepath.Join(destDir, filepath.Clean(file.Name))
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *sevenzip.File, target string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
