package tcgcsv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	return &Client{
		BaseURL:    serverURL,
		ArchiveURL: serverURL + "/archive/tcgplayer",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFetchCategoriesFiltersToSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tcgplayer/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"categoryId":1,"name":"Magic","displayName":"Magic: The Gathering","modifiedOn":"2025-01-01T00:00:00"},
			{"categoryId":3,"name":"Pokemon","displayName":"Pokemon","modifiedOn":"2025-01-01T00:00:00"},
			{"categoryId":99,"name":"Unsupported","displayName":"Unsupported","modifiedOn":"2025-01-01T00:00:00"}
		]}`)
	}))
	defer srv.Close()

	cats, err := testClient(srv.URL).FetchCategories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two supported categories present; the two missing ones are logged, not
	// fatal, and the unsupported one is dropped.
	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", len(cats))
	}
	for _, c := range cats {
		if c.CategoryID == 99 {
			t.Fatal("unsupported category leaked through the allow-list")
		}
	}
}

func TestFetchGroupsEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"errors":["rate limited","try later"],"results":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchGroups(context.Background(), 3)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Errors) != 2 {
		t.Fatalf("expected both feed errors preserved, got %v", apiErr.Errors)
	}
}

func TestFetchPricesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchPrices(context.Background(), 3, 100)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", fetchErr.Status)
	}
}

func TestFetchPricesPreservesNullFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"errors":[],"results":[
			{"productId":9001,"subTypeName":"Normal","marketPrice":2.5,"lowPrice":null}
		]}`)
	}))
	defer srv.Close()

	prices, err := testClient(srv.URL).FetchPrices(context.Background(), 3, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("got %d rows, want 1", len(prices))
	}
	if prices[0].LowPrice != nil {
		t.Fatal("null lowPrice should stay nil")
	}
	if prices[0].MarketPrice == nil || *prices[0].MarketPrice != 2.5 {
		t.Fatalf("marketPrice = %v, want 2.5", prices[0].MarketPrice)
	}
}

func TestFetchLastUpdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/last-updated.txt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, "2025-06-15T20:05:01+0000\n")
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchLastUpdated(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 6, 15, 20, 5, 1, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDownloadArchiveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := testClient(srv.URL).DownloadArchive(context.Background(), date, t.TempDir())
	if !errors.Is(err, ErrArchiveNotFound) {
		t.Fatalf("expected ErrArchiveNotFound, got %v", err)
	}
}

func TestDownloadArchiveWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/archive/tcgplayer/prices-2025-02-01.ppmd.7z" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	path, err := testClient(srv.URL).DownloadArchive(context.Background(), date, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("archive written outside dest dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(data) != "archive-bytes" {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestParseFeedTime(t *testing.T) {
	got := ParseFeedTime("2024-03-01T15:30:00.123")
	if got.IsZero() {
		t.Fatal("expected fractional-second timestamp to parse")
	}
	if !ParseFeedTime("not a date").IsZero() {
		t.Fatal("expected zero time for junk input")
	}
	if !ParseFeedTime("").IsZero() {
		t.Fatal("expected zero time for empty input")
	}
}
