package pipeline

import (
	"testing"

	"github.com/cardvault-project/backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	// A pooled second connection would see a different :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Group{},
		&models.Product{},
		&models.PresaleInfo{},
		&models.ExtendedData{},
		&models.ProductSubtype{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	// The production table carries PRIMARY KEY (id, recorded_at) for
	// time-partitioned storage; SQLite can't combine that with
	// autoincrement, so the test schema keeps id alone as the key.
	if err := db.Exec(`CREATE TABLE product_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_subtype_id INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL,
		low_price REAL,
		mid_price REAL,
		high_price REAL,
		market_price REAL,
		direct_low_price REAL
	)`).Error; err != nil {
		t.Fatalf("failed to create product_prices: %v", err)
	}
	if err := db.Exec(`CREATE INDEX idx_price_subtype_time ON product_prices (product_subtype_id, recorded_at)`).Error; err != nil {
		t.Fatalf("failed to index product_prices: %v", err)
	}

	return db
}

func floatPtr(v float64) *float64 {
	return &v
}
