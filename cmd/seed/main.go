/**
 * @description
 * Nightly ingestion entry point.
 * Seeds the catalog hierarchy (categories, groups, products) from the feed,
 * then appends one price observation per product variant. The catalog phase
 * must succeed before the price phase starts; the first fatal error aborts
 * the run with exit code 1.
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
	"time"

	"github.com/cardvault-project/backend/internal/config"
	"github.com/cardvault-project/backend/internal/db"
	"github.com/cardvault-project/backend/internal/logger"
	"github.com/cardvault-project/backend/internal/pipeline"
	"github.com/cardvault-project/backend/internal/tcgcsv"
)

const lastSyncKey = "feed:last_synced"

func main() {
	logger.Info("🚀 Starting nightly price ingestion...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	client := tcgcsv.NewClient(cfg)
	seeder := pipeline.NewSeeder(pgDB, client, pipeline.DefaultOptions())

	ctx := context.Background()

	// The feed publishes its own refresh marker; prices are stamped with it
	// so nightly observations line up with the upstream snapshot time.
	recordedAt, err := client.FetchLastUpdated(ctx)
	if err != nil {
		logger.Error("⚠️ Could not read last-updated marker, falling back to now: %v", err)
		recordedAt = time.Now().UTC()
	}

	if _, err := seeder.SeedCatalog(ctx); err != nil {
		logger.Fatal("Catalog seeding failed: %v", err)
	}

	stats, err := seeder.SeedPrices(ctx, recordedAt)
	if err != nil {
		logger.Fatal("Price seeding failed after %d inserts: %v", stats.Inserted, err)
	}

	if err := redisClient.Set(ctx, lastSyncKey, recordedAt.Format(time.RFC3339), 0).Err(); err != nil {
		logger.Error("⚠️ Failed to record sync marker: %v", err)
	}

	logger.Info("✅ Ingestion complete: %d price rows inserted, %d subtype lookups dropped",
		stats.Inserted, stats.UnresolvedSubtypes)
}
