package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardvault-project/backend/internal/models"
	"github.com/cardvault-project/backend/internal/tcgcsv"
)

// fakeFeed serves a minimal one-category catalog with two groups, one of
// which always fails so the fan-out's tag-and-continue path is exercised.
func fakeFeed(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tcgplayer/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"categoryId":3,"name":"Pokemon","displayName":"Pokemon","modifiedOn":"2025-01-01T00:00:00"}
		]}`)
	})
	mux.HandleFunc("/tcgplayer/3/groups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"groupId":100,"name":"Base Set","abbreviation":"BS","categoryId":3,"modifiedOn":"2025-01-01T00:00:00"},
			{"groupId":101,"name":"Jungle","abbreviation":"JU","categoryId":3,"modifiedOn":"2025-01-01T00:00:00"}
		]}`)
	})
	mux.HandleFunc("/tcgplayer/3/100/products", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"productId":9001,"name":"Alakazam","cleanName":"Alakazam","categoryId":3,"groupId":100,"modifiedOn":"2025-01-01T00:00:00"}
		]}`)
	})
	mux.HandleFunc("/tcgplayer/3/100/prices", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"productId":9001,"subTypeName":"Normal","marketPrice":2.50}
		]}`)
	})
	// Group 101 is broken for both products and prices.
	mux.HandleFunc("/tcgplayer/3/101/products", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/tcgplayer/3/101/prices", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

func TestSeederEndToEnd(t *testing.T) {
	srv := fakeFeed(t)
	defer srv.Close()

	db := newTestDB(t)
	client := &tcgcsv.Client{
		BaseURL:    srv.URL,
		ArchiveURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	seeder := NewSeeder(db, client, Options{BatchSize: 50, Concurrency: 2})
	ctx := context.Background()

	cats, err := seeder.SeedCatalog(ctx)
	if err != nil {
		t.Fatalf("catalog seeding failed: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("got %d categories, want 1", len(cats))
	}

	var groupCount, productCount int64
	db.Model(&models.Group{}).Count(&groupCount)
	db.Model(&models.Product{}).Count(&productCount)
	if groupCount != 2 {
		t.Fatalf("got %d groups, want 2", groupCount)
	}
	// Group 101's products failed; the good group must still land.
	if productCount != 1 {
		t.Fatalf("got %d products, want 1", productCount)
	}

	recordedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stats, err := seeder.SeedPrices(ctx, recordedAt)
	if err != nil {
		t.Fatalf("price seeding failed: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", stats.Inserted)
	}

	// Re-running the catalog phase with identical upstream data must not
	// duplicate anything.
	if _, err := seeder.SeedCatalog(ctx); err != nil {
		t.Fatalf("re-seeding failed: %v", err)
	}
	db.Model(&models.Product{}).Count(&productCount)
	if productCount != 1 {
		t.Fatalf("re-ingestion duplicated products: %d", productCount)
	}
}
