/**
 * @description
 * HTTP client for the tcgcsv.com price feed.
 * Fetches categories, groups, products and prices, plus the feed's
 * last-updated marker. Every JSON endpoint shares the envelope shape
 * {success, errors, results}.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 * - backend/internal/logger
 *
 * @notes
 * - No retry logic: a failure propagates to the caller, which decides whether
 *   to abandon the group/day or the whole run.
 * - Categories are filtered to the supported allow-list; missing ones are
 *   logged, not fatal, since partial results are acceptable.
 */

package tcgcsv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cardvault-project/backend/internal/config"
	"github.com/cardvault-project/backend/internal/logger"
)

const (
	DefaultTimeout = 30 * time.Second

	// LastUpdatedLayout is the plain-text timestamp format of /last-updated.txt.
	LastUpdatedLayout = "2006-01-02T15:04:05-0700"
)

// SupportedCategoryIDs is the fixed allow-list of categories this deployment
// tracks. Fixed at build time, not runtime-configurable.
var SupportedCategoryIDs = []int{1, 2, 3, 68}

type Client struct {
	BaseURL    string
	ArchiveURL string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:    cfg.TCGCSV.BaseURL,
		ArchiveURL: cfg.TCGCSV.ArchiveURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// getEnvelope performs a GET and decodes the shared response envelope.
func getEnvelope[T any](ctx context.Context, c *Client, url string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Reason: resp.Status}
	}

	var env Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Reason: err.Error()}
	}

	if !env.Success {
		return nil, &APIError{URL: url, Errors: env.Errors}
	}

	return env.Results, nil
}

// FetchCategories fetches all categories and filters them to the supported
// allow-list. Missing supported categories are logged but do not fail the
// call.
func (c *Client) FetchCategories(ctx context.Context) ([]FeedCategory, error) {
	url := fmt.Sprintf("%s/tcgplayer/categories", c.BaseURL)
	all, err := getEnvelope[FeedCategory](ctx, c, url)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]FeedCategory, len(all))
	for _, cat := range all {
		byID[cat.CategoryID] = cat
	}

	supported := make([]FeedCategory, 0, len(SupportedCategoryIDs))
	for _, id := range SupportedCategoryIDs {
		cat, ok := byID[id]
		if !ok {
			logger.Error("⚠️ Supported category %d missing from feed response", id)
			continue
		}
		supported = append(supported, cat)
	}

	return supported, nil
}

// FetchGroups fetches all groups (sets) for a category.
func (c *Client) FetchGroups(ctx context.Context, categoryID int) ([]FeedGroup, error) {
	url := fmt.Sprintf("%s/tcgplayer/%d/groups", c.BaseURL, categoryID)
	return getEnvelope[FeedGroup](ctx, c, url)
}

// FetchProducts fetches all products (cards) for a group.
func (c *Client) FetchProducts(ctx context.Context, categoryID, groupID int) ([]FeedProduct, error) {
	url := fmt.Sprintf("%s/tcgplayer/%d/%d/products", c.BaseURL, categoryID, groupID)
	return getEnvelope[FeedProduct](ctx, c, url)
}

// FetchPrices fetches the current price rows for a group.
func (c *Client) FetchPrices(ctx context.Context, categoryID, groupID int) ([]FeedPrice, error) {
	url := fmt.Sprintf("%s/tcgplayer/%d/%d/prices", c.BaseURL, categoryID, groupID)
	return getEnvelope[FeedPrice](ctx, c, url)
}

// FetchLastUpdated fetches the feed's plain-text last-updated marker.
func (c *Client) FetchLastUpdated(ctx context.Context) (time.Time, error) {
	url := fmt.Sprintf("%s/last-updated.txt", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return time.Time{}, &FetchError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, &FetchError{URL: url, Status: resp.StatusCode, Reason: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, &FetchError{URL: url, Status: resp.StatusCode, Reason: err.Error()}
	}

	stamp := strings.TrimSpace(string(raw))
	t, err := time.Parse(LastUpdatedLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed last-updated marker %q: %w", stamp, err)
	}
	return t, nil
}
