/**
 * @description
 * Live-feed seeding orchestrator.
 * Runs the nightly two-phase ingestion: first the catalog hierarchy
 * (categories -> groups -> products), then one price observation per product
 * variant. The catalog phase must succeed before the price phase starts.
 *
 * @dependencies
 * - backend/internal/tcgcsv
 * - backend/internal/models
 * - backend/internal/logger
 * - github.com/google/uuid (run tagging in logs)
 *
 * @notes
 * - Per-group fetch failures inside the fan-out are tagged and logged so one
 *   bad group doesn't abort a whole category; everything else is fail-fast.
 */

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cardvault-project/backend/internal/logger"
	"github.com/cardvault-project/backend/internal/models"
	"github.com/cardvault-project/backend/internal/tcgcsv"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Seeder struct {
	DB         *gorm.DB
	Client     *tcgcsv.Client
	Reconciler *Reconciler
	Prices     *PriceWriter
	Opts       Options
}

func NewSeeder(db *gorm.DB, client *tcgcsv.Client, opts Options) *Seeder {
	opts = opts.withDefaults()
	reconciler := NewReconciler(db, opts)
	return &Seeder{
		DB:         db,
		Client:     client,
		Reconciler: reconciler,
		Prices:     NewPriceWriter(db, reconciler, opts),
		Opts:       opts,
	}
}

// groupFetch is the error-tagged result of one per-group fetch inside the
// bounded fan-out. Tagging keeps a single bad group from aborting the pool.
type groupFetch[T any] struct {
	GroupID int
	Rows    []T
	Err     error
}

// SeedCatalog ingests categories, their groups, and every group's products.
// Returns the supported categories that were ingested.
func (s *Seeder) SeedCatalog(ctx context.Context) ([]tcgcsv.FeedCategory, error) {
	runID := uuid.New().String()[:8]
	logger.Info("[%s] Seeding catalog...", runID)

	cats, err := s.Client.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	if err := s.Reconciler.UpsertCategories(ctx, cats); err != nil {
		return nil, err
	}
	logger.Info("[%s] Upserted %d categories", runID, len(cats))

	for _, cat := range cats {
		groups, err := s.Client.FetchGroups(ctx, cat.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch groups for category %d: %w", cat.CategoryID, err)
		}
		if err := s.Reconciler.UpsertGroups(ctx, groups); err != nil {
			return nil, err
		}

		results, err := RunBounded(ctx, groups, s.Opts.Concurrency,
			func(ctx context.Context, g tcgcsv.FeedGroup) (groupFetch[tcgcsv.FeedProduct], error) {
				products, err := s.Client.FetchProducts(ctx, cat.CategoryID, g.GroupID)
				return groupFetch[tcgcsv.FeedProduct]{GroupID: g.GroupID, Rows: products, Err: err}, nil
			})
		if err != nil {
			return nil, err
		}

		var products []tcgcsv.FeedProduct
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				logger.Error("⚠️ [%s] Skipping products for group %d: %v", runID, res.GroupID, res.Err)
				continue
			}
			products = append(products, res.Rows...)
		}

		if err := s.Reconciler.UpsertProducts(ctx, products); err != nil {
			return nil, err
		}
		logger.Info("[%s] Category %d: %d groups, %d products (%d groups failed)",
			runID, cat.CategoryID, len(groups), len(products), failed)
	}

	return cats, nil
}

// SeedPrices fetches the current price rows for every known group and appends
// one observation per variant, stamped with recordedAt.
func (s *Seeder) SeedPrices(ctx context.Context, recordedAt time.Time) (WriteStats, error) {
	runID := uuid.New().String()[:8]
	var total WriteStats

	var groups []models.Group
	if err := s.DB.WithContext(ctx).Where("category_id IS NOT NULL").Find(&groups).Error; err != nil {
		return total, fmt.Errorf("failed to load groups: %w", err)
	}
	logger.Info("[%s] Seeding prices for %d groups at %s", runID, len(groups), recordedAt.Format(time.RFC3339))

	results, err := RunBounded(ctx, groups, s.Opts.Concurrency,
		func(ctx context.Context, g models.Group) (groupFetch[tcgcsv.FeedPrice], error) {
			if g.CategoryID == nil {
				return groupFetch[tcgcsv.FeedPrice]{GroupID: g.GroupID,
					Err: fmt.Errorf("group %d has no category", g.GroupID)}, nil
			}
			prices, err := s.Client.FetchPrices(ctx, *g.CategoryID, g.GroupID)
			return groupFetch[tcgcsv.FeedPrice]{GroupID: g.GroupID, Rows: prices, Err: err}, nil
		})
	if err != nil {
		return total, err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Error("⚠️ [%s] Skipping prices for group %d: %v", runID, res.GroupID, res.Err)
			continue
		}
		stats, err := s.Prices.WriteLive(ctx, res.Rows, recordedAt)
		total = total.Add(stats)
		if err != nil {
			// Write failures are fatal: remaining groups are not attempted.
			return total, err
		}
	}

	logger.Info("[%s] Price seeding done: %d inserted, %d unresolved subtypes, %d groups failed",
		runID, total.Inserted, total.UnresolvedSubtypes, failed)
	return total, nil
}
