package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cardvault-project/backend/internal/models"
	"github.com/cardvault-project/backend/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Product{}, &models.PresaleInfo{}, &models.ExtendedData{}, &models.ProductSubtype{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
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

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	handler := NewTimelineHandler(services.NewTimelineService(db, redisClient))
	app := fiber.New()
	app.Get("/api/v1/products/:id/timeline", handler.GetTimeline)

	return app, db
}

func doRequest(t *testing.T, app *fiber.App, url string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestGetTimelineUnknownProduct(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "/api/v1/products/777/timeline?start=2025-01-01&end=2025-01-02&interval=1d")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTimelineInvalidRange(t *testing.T) {
	app, db := newTestApp(t)
	if err := db.Create(&models.Product{ProductID: 9001, Name: "Alakazam", GroupID: 100}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp := doRequest(t, app, "/api/v1/products/9001/timeline?start=2025-01-02&end=2025-01-01&interval=1d")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetTimelineBadInterval(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "/api/v1/products/9001/timeline?start=2025-01-01&interval=fortnight")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetTimelineReturnsBuckets(t *testing.T) {
	app, db := newTestApp(t)

	if err := db.Create(&models.Product{ProductID: 9001, Name: "Alakazam", GroupID: 100}).Error; err != nil {
		t.Fatalf("product seed failed: %v", err)
	}
	subtype := models.ProductSubtype{
		ProductID:   9001,
		SubTypeName: "Normal",
		IsActive:    true,
		FirstSeenAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LastSeenAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&subtype).Error; err != nil {
		t.Fatalf("subtype seed failed: %v", err)
	}
	market := 2.50
	if err := db.Create(&models.ProductPrice{
		ProductSubtypeID: subtype.ID,
		RecordedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MarketPrice:      &market,
	}).Error; err != nil {
		t.Fatalf("price seed failed: %v", err)
	}

	resp := doRequest(t, app, "/api/v1/products/9001/timeline?start=2024-12-31&end=2025-01-02&interval=1d")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200 (body: %s)", resp.StatusCode, body)
	}

	var timeline services.Timeline
	if err := json.NewDecoder(resp.Body).Decode(&timeline); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(timeline.Subtypes) != 1 || len(timeline.Subtypes[0].Buckets) != 1 {
		t.Fatalf("unexpected timeline shape: %+v", timeline)
	}
	bucket := timeline.Subtypes[0].Buckets[0]
	if bucket.DataPoints != 1 || bucket.Market.Avg == nil || *bucket.Market.Avg != 2.50 {
		t.Fatalf("unexpected bucket: %+v", bucket)
	}
}
