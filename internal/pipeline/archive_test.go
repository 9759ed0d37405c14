package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardvault-project/backend/internal/tcgcsv"
)

func TestArchiveRunSkipsUnpublishedDays(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := &tcgcsv.Client{
		BaseURL:    srv.URL,
		ArchiveURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	writer, _ := newTestWriter(t)
	importer := NewArchiveImporter(client, writer)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	summary, err := importer.Run(context.Background(), start, end)
	if err != nil {
		t.Fatalf("missing archives must not fail the run: %v", err)
	}
	if summary.Skipped != 3 || summary.Succeeded != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 3 skipped only", summary)
	}
	if requests != 3 {
		t.Fatalf("made %d requests, want one per day", requests)
	}
}

func TestArchiveRunHaltsOnTransportFailure(t *testing.T) {
	day := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		day++
		if day == 1 {
			http.NotFound(w, r)
			return
		}
		// A non-404 failure is fatal, not skippable.
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	client := &tcgcsv.Client{
		BaseURL:    srv.URL,
		ArchiveURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	writer, _ := newTestWriter(t)
	importer := NewArchiveImporter(client, writer)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)

	summary, err := importer.Run(context.Background(), start, end)
	if err == nil {
		t.Fatal("expected the run to halt on a transport failure")
	}
	if summary.Skipped != 1 || summary.Failed != 1 || summary.Succeeded != 0 {
		t.Fatalf("summary = %+v, want 1 skipped then 1 failed", summary)
	}
}
