/**
 * @description
 * Upsert reconciler for the ingestion pipeline.
 * Turns batches of feed entities into idempotent database writes: categories,
 * groups and products are insert-or-update keyed on their external IDs,
 * extended data is replaced wholesale per product, and subtypes are
 * insert-if-new.
 *
 * @dependencies
 * - gorm.io/gorm + gorm.io/gorm/clause
 * - github.com/jackc/pgconn (deadlock error codes)
 * - backend/internal/models
 * - backend/internal/tcgcsv
 *
 * @notes
 * - The incoming row always wins on conflict: re-ingestion unconditionally
 *   overwrites prior field values, with no modifiedOn comparison. The feed is
 *   trusted as the source of truth.
 * - A chunk failure aborts the entire run; there is no partial-batch retry
 *   beyond the deadlock-code retry loop.
 */

package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cardvault-project/backend/internal/models"
	"github.com/cardvault-project/backend/internal/tcgcsv"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubtypeKey identifies one sale variant of a product in the price feed.
type SubtypeKey struct {
	ProductID   int
	SubTypeName string
}

type Reconciler struct {
	DB   *gorm.DB
	Opts Options
}

func NewReconciler(db *gorm.DB, opts Options) *Reconciler {
	return &Reconciler{DB: db, Opts: opts.withDefaults()}
}

// withDeadlockRetry retries fn on Postgres deadlock/serialization failures
// (40P01, 40001) with a short jittered backoff. Every other error is
// returned as-is.
func withDeadlockRetry(fn func() error) error {
	const maxRetries = 5
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if pgErr, ok := err.(*pgconn.PgError); ok && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		return err
	}
	return err
}

// UpsertCategories inserts or updates categories keyed on category_id.
func (r *Reconciler) UpsertCategories(ctx context.Context, cats []tcgcsv.FeedCategory) error {
	if len(cats) == 0 {
		return nil
	}

	rows := make([]models.Category, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, c.ToDBModel())
	}

	err := withDeadlockRetry(func() error {
		return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"display_name",
				"modified_on",
				"updated_at",
			}),
		}).CreateInBatches(rows, r.Opts.BatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert categories: %w", err)
	}
	return nil
}

// UpsertGroups inserts or updates groups keyed on group_id.
func (r *Reconciler) UpsertGroups(ctx context.Context, groups []tcgcsv.FeedGroup) error {
	if len(groups) == 0 {
		return nil
	}

	rows := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, g.ToDBModel())
	}

	err := withDeadlockRetry(func() error {
		return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "group_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"abbreviation",
				"is_supplemental",
				"published_on",
				"modified_on",
				"category_id",
				"updated_at",
			}),
		}).CreateInBatches(rows, r.Opts.BatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert groups: %w", err)
	}
	return nil
}

// UpsertProducts inserts or updates products keyed on product_id, upserts
// their presale info, and replaces their extended data wholesale.
func (r *Reconciler) UpsertProducts(ctx context.Context, products []tcgcsv.FeedProduct) error {
	if len(products) == 0 {
		return nil
	}

	rows := make([]models.Product, 0, len(products))
	presales := make([]models.PresaleInfo, 0, len(products))
	var extended []models.ExtendedData
	touchedIDs := make([]int, 0, len(products))

	for _, p := range products {
		rows = append(rows, p.ToDBModel())
		touchedIDs = append(touchedIDs, p.ProductID)
		if presale := p.PresaleToDBModel(); presale != nil {
			presales = append(presales, *presale)
		}
		extended = append(extended, p.ExtendedDataToDBModels()...)
	}

	err := withDeadlockRetry(func() error {
		return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"clean_name",
				"card_number",
				"image_url",
				"category_id",
				"group_id",
				"url",
				"modified_on",
				"image_count",
				"updated_at",
			}),
		}).CreateInBatches(rows, r.Opts.BatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}

	if len(presales) > 0 {
		err = withDeadlockRetry(func() error {
			return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "product_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"is_presale",
					"released_on",
					"note",
				}),
			}).CreateInBatches(presales, r.Opts.BatchSize).Error
		})
		if err != nil {
			return fmt.Errorf("failed to upsert presale info: %w", err)
		}
	}

	// Extended data is replacement, not merge: a product whose latest fetch
	// carries fewer attributes must lose the stale ones.
	for _, idChunk := range Chunk(touchedIDs, r.Opts.BatchSize) {
		if err := r.DB.WithContext(ctx).Where("product_id IN ?", idChunk).Delete(&models.ExtendedData{}).Error; err != nil {
			return fmt.Errorf("failed to clear extended data: %w", err)
		}
	}
	if len(extended) > 0 {
		if err := r.DB.WithContext(ctx).CreateInBatches(extended, r.Opts.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert extended data: %w", err)
		}
	}

	return nil
}

// EnsureSubtypes inserts subtype rows for any (product, variant) pair not
// seen before. Existing rows are left untouched: the first observation wins.
func (r *Reconciler) EnsureSubtypes(ctx context.Context, keys []SubtypeKey, seenAt time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	rows := make([]models.ProductSubtype, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, models.ProductSubtype{
			ProductID:   k.ProductID,
			SubTypeName: k.SubTypeName,
			IsActive:    true,
			FirstSeenAt: seenAt,
			LastSeenAt:  seenAt,
		})
	}

	err := withDeadlockRetry(func() error {
		return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "sub_type_name"}},
			DoNothing: true,
		}).CreateInBatches(rows, r.Opts.BatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to ensure subtypes: %w", err)
	}
	return nil
}

// ResolveSubtypeIDs reads back the numeric IDs for the given (product,
// variant) pairs. Pairs absent from the map are lookup gaps the caller drops
// with a warning.
func (r *Reconciler) ResolveSubtypeIDs(ctx context.Context, keys []SubtypeKey) (map[SubtypeKey]uint64, error) {
	resolved := make(map[SubtypeKey]uint64, len(keys))
	if len(keys) == 0 {
		return resolved, nil
	}

	idSet := make(map[int]struct{}, len(keys))
	productIDs := make([]int, 0, len(keys))
	for _, k := range keys {
		if _, seen := idSet[k.ProductID]; !seen {
			idSet[k.ProductID] = struct{}{}
			productIDs = append(productIDs, k.ProductID)
		}
	}

	wanted := make(map[SubtypeKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	for _, idChunk := range Chunk(productIDs, r.Opts.BatchSize) {
		var rows []models.ProductSubtype
		if err := r.DB.WithContext(ctx).Where("product_id IN ?", idChunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve subtypes: %w", err)
		}
		for _, row := range rows {
			key := SubtypeKey{ProductID: row.ProductID, SubTypeName: row.SubTypeName}
			if _, ok := wanted[key]; ok {
				resolved[key] = row.ID
			}
		}
	}

	return resolved, nil
}
