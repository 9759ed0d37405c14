/**
 * @description
 * Price writer for the ingestion pipeline.
 * Appends immutable price observations tied to a product subtype and a
 * timestamp. There is no update path: history is corrected only by
 * inserting a new observation.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 * - backend/internal/tcgcsv
 * - backend/internal/logger
 *
 * @notes
 * - Live mode assumes the catalog seeding step already ran this cycle.
 * - Archive mode filters out rows whose product was never ingested; those are
 *   counted as missing products, never inserted as orphans and never fatal.
 */

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cardvault-project/backend/internal/logger"
	"github.com/cardvault-project/backend/internal/models"
	"github.com/cardvault-project/backend/internal/tcgcsv"
	"gorm.io/gorm"
)

type PriceWriter struct {
	DB         *gorm.DB
	Reconciler *Reconciler
	Opts       Options
}

func NewPriceWriter(db *gorm.DB, reconciler *Reconciler, opts Options) *PriceWriter {
	return &PriceWriter{DB: db, Reconciler: reconciler, Opts: opts.withDefaults()}
}

// WriteStats summarizes one price-writing pass.
type WriteStats struct {
	Inserted           int
	MissingProducts    int
	UnresolvedSubtypes int
}

func (s WriteStats) Add(other WriteStats) WriteStats {
	return WriteStats{
		Inserted:           s.Inserted + other.Inserted,
		MissingProducts:    s.MissingProducts + other.MissingProducts,
		UnresolvedSubtypes: s.UnresolvedSubtypes + other.UnresolvedSubtypes,
	}
}

// WriteLive appends price observations for a live feed pass. Products are
// expected to exist already; rows for unknown products surface as unresolved
// subtype lookups.
func (w *PriceWriter) WriteLive(ctx context.Context, prices []tcgcsv.FeedPrice, recordedAt time.Time) (WriteStats, error) {
	return w.write(ctx, prices, recordedAt, false)
}

// WriteArchive appends price observations replayed from a daily archive.
// Rows whose product has no catalog entry are skipped and counted, since
// historic archives reference products that were later delisted.
func (w *PriceWriter) WriteArchive(ctx context.Context, prices []tcgcsv.FeedPrice, recordedAt time.Time) (WriteStats, error) {
	return w.write(ctx, prices, recordedAt, true)
}

func (w *PriceWriter) write(ctx context.Context, prices []tcgcsv.FeedPrice, recordedAt time.Time, skipMissing bool) (WriteStats, error) {
	var stats WriteStats
	if len(prices) == 0 {
		return stats, nil
	}

	if skipMissing {
		kept, missing, err := w.filterToKnownProducts(ctx, prices)
		if err != nil {
			return stats, err
		}
		stats.MissingProducts = missing
		prices = kept
		if len(prices) == 0 {
			return stats, nil
		}
	}

	keys := make([]SubtypeKey, 0, len(prices))
	keySet := make(map[SubtypeKey]struct{}, len(prices))
	for _, p := range prices {
		key := SubtypeKey{ProductID: p.ProductID, SubTypeName: p.SubTypeName}
		if _, dup := keySet[key]; !dup {
			keySet[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	// Subtypes must be committed and re-read before the dependent price rows
	// are inserted.
	if err := w.Reconciler.EnsureSubtypes(ctx, keys, recordedAt); err != nil {
		return stats, err
	}
	resolved, err := w.Reconciler.ResolveSubtypeIDs(ctx, keys)
	if err != nil {
		return stats, err
	}

	rows := make([]models.ProductPrice, 0, len(prices))
	for _, p := range prices {
		key := SubtypeKey{ProductID: p.ProductID, SubTypeName: p.SubTypeName}
		subtypeID, ok := resolved[key]
		if !ok {
			stats.UnresolvedSubtypes++
			logger.Error("⚠️ Dropping price row: unresolved subtype %q for product %d", p.SubTypeName, p.ProductID)
			continue
		}
		rows = append(rows, models.ProductPrice{
			ProductSubtypeID: subtypeID,
			RecordedAt:       recordedAt,
			LowPrice:         p.LowPrice,
			MidPrice:         p.MidPrice,
			HighPrice:        p.HighPrice,
			MarketPrice:      p.MarketPrice,
			DirectLowPrice:   p.DirectLowPrice,
		})
	}

	for _, chunk := range Chunk(rows, w.Opts.BatchSize) {
		if err := w.DB.WithContext(ctx).CreateInBatches(chunk, w.Opts.BatchSize).Error; err != nil {
			return stats, fmt.Errorf("failed to insert price batch: %w", err)
		}
		stats.Inserted += len(chunk)
	}

	return stats, nil
}

// filterToKnownProducts drops price rows whose product has no catalog entry.
func (w *PriceWriter) filterToKnownProducts(ctx context.Context, prices []tcgcsv.FeedPrice) ([]tcgcsv.FeedPrice, int, error) {
	idSet := make(map[int]struct{}, len(prices))
	ids := make([]int, 0, len(prices))
	for _, p := range prices {
		if _, seen := idSet[p.ProductID]; !seen {
			idSet[p.ProductID] = struct{}{}
			ids = append(ids, p.ProductID)
		}
	}

	known := make(map[int]struct{}, len(ids))
	for _, idChunk := range Chunk(ids, w.Opts.BatchSize) {
		var existing []int
		if err := w.DB.WithContext(ctx).Model(&models.Product{}).
			Where("product_id IN ?", idChunk).
			Pluck("product_id", &existing).Error; err != nil {
			return nil, 0, fmt.Errorf("failed to check existing products: %w", err)
		}
		for _, id := range existing {
			known[id] = struct{}{}
		}
	}

	kept := make([]tcgcsv.FeedPrice, 0, len(prices))
	missing := 0
	for _, p := range prices {
		if _, ok := known[p.ProductID]; ok {
			kept = append(kept, p)
		} else {
			missing++
		}
	}
	if missing > 0 {
		logger.Info("Skipped %d price rows referencing missing products", missing)
	}
	return kept, missing, nil
}
