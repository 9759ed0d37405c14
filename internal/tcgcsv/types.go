/**
 * @description
 * Wire types for the tcgcsv.com price feed.
 * Every endpoint shares the same JSON envelope; the result payloads below are
 * converted to database models via the ToDBModel helpers.
 *
 * @dependencies
 * - backend/internal/models
 */

package tcgcsv

import (
	"time"

	"github.com/cardvault-project/backend/internal/models"
)

// Envelope is the response wrapper every feed endpoint uses.
type Envelope[T any] struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
	Results []T      `json:"results"`
}

// FeedCategory is one category row from /tcgplayer/categories.
type FeedCategory struct {
	CategoryID  int    `json:"categoryId"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ModifiedOn  string `json:"modifiedOn"`
}

// FeedGroup is one group row from /tcgplayer/{categoryId}/groups.
type FeedGroup struct {
	GroupID        int    `json:"groupId"`
	Name           string `json:"name"`
	Abbreviation   string `json:"abbreviation"`
	IsSupplemental bool   `json:"isSupplemental"`
	PublishedOn    string `json:"publishedOn"`
	ModifiedOn     string `json:"modifiedOn"`
	CategoryID     int    `json:"categoryId"`
}

// FeedPresaleInfo is the nested presale block on a product row.
type FeedPresaleInfo struct {
	IsPresale  bool   `json:"isPresale"`
	ReleasedOn string `json:"releasedOn"`
	Note       string `json:"note"`
}

// FeedExtendedData is one free-form attribute on a product row.
type FeedExtendedData struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Value       string `json:"value"`
}

// FeedProduct is one product row from /tcgplayer/{categoryId}/{groupId}/products.
type FeedProduct struct {
	ProductID    int                `json:"productId"`
	Name         string             `json:"name"`
	CleanName    string             `json:"cleanName"`
	ImageURL     string             `json:"imageUrl"`
	CategoryID   int                `json:"categoryId"`
	GroupID      int                `json:"groupId"`
	URL          string             `json:"url"`
	ModifiedOn   string             `json:"modifiedOn"`
	ImageCount   int                `json:"imageCount"`
	PresaleInfo  *FeedPresaleInfo   `json:"presaleInfo"`
	ExtendedData []FeedExtendedData `json:"extendedData"`
}

// FeedPrice is one price row from /tcgplayer/{categoryId}/{groupId}/prices.
// Price fields are pointers: the feed omits prices that don't exist for a
// variant and those must stay NULL in storage.
type FeedPrice struct {
	ProductID      int      `json:"productId"`
	LowPrice       *float64 `json:"lowPrice"`
	MidPrice       *float64 `json:"midPrice"`
	HighPrice      *float64 `json:"highPrice"`
	MarketPrice    *float64 `json:"marketPrice"`
	DirectLowPrice *float64 `json:"directLowPrice"`
	SubTypeName    string   `json:"subTypeName"`
}

// feedTimeLayouts covers the timestamp shapes the feed is known to emit.
var feedTimeLayouts = []string{
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseFeedTime parses a feed timestamp, returning the zero time for empty or
// unrecognized values.
func ParseFeedTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ToDBModel converts a feed category to its database model
func (c FeedCategory) ToDBModel() models.Category {
	return models.Category{
		CategoryID:  c.CategoryID,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		ModifiedOn:  ParseFeedTime(c.ModifiedOn),
	}
}

// ToDBModel converts a feed group to its database model
func (g FeedGroup) ToDBModel() models.Group {
	group := models.Group{
		GroupID:        g.GroupID,
		Name:           g.Name,
		Abbreviation:   g.Abbreviation,
		IsSupplemental: g.IsSupplemental,
		ModifiedOn:     ParseFeedTime(g.ModifiedOn),
	}
	if g.CategoryID != 0 {
		categoryID := g.CategoryID
		group.CategoryID = &categoryID
	}
	if published := ParseFeedTime(g.PublishedOn); !published.IsZero() {
		group.PublishedOn = &published
	}
	return group
}

// CardNumber extracts the card number attribute from a product's extended
// data, if present.
func (p FeedProduct) CardNumber() string {
	for _, ed := range p.ExtendedData {
		if ed.Name == "Number" {
			return ed.Value
		}
	}
	return ""
}

// ToDBModel converts a feed product to its database model. Presale info and
// extended data are returned separately by the reconciler helpers since they
// live in their own tables.
func (p FeedProduct) ToDBModel() models.Product {
	return models.Product{
		ProductID:  p.ProductID,
		Name:       p.Name,
		CleanName:  p.CleanName,
		CardNumber: p.CardNumber(),
		ImageURL:   p.ImageURL,
		CategoryID: p.CategoryID,
		GroupID:    p.GroupID,
		URL:        p.URL,
		ModifiedOn: ParseFeedTime(p.ModifiedOn),
		ImageCount: p.ImageCount,
	}
}

// PresaleToDBModel converts the nested presale block, or returns nil when the
// feed omitted it.
func (p FeedProduct) PresaleToDBModel() *models.PresaleInfo {
	if p.PresaleInfo == nil {
		return nil
	}
	info := &models.PresaleInfo{
		ProductID: p.ProductID,
		IsPresale: p.PresaleInfo.IsPresale,
		Note:      p.PresaleInfo.Note,
	}
	if released := ParseFeedTime(p.PresaleInfo.ReleasedOn); !released.IsZero() {
		info.ReleasedOn = &released
	}
	return info
}

// ExtendedDataToDBModels converts the product's attribute list.
func (p FeedProduct) ExtendedDataToDBModels() []models.ExtendedData {
	if len(p.ExtendedData) == 0 {
		return nil
	}
	rows := make([]models.ExtendedData, 0, len(p.ExtendedData))
	for _, ed := range p.ExtendedData {
		rows = append(rows, models.ExtendedData{
			ProductID:   p.ProductID,
			Name:        ed.Name,
			DisplayName: ed.DisplayName,
			Value:       ed.Value,
		})
	}
	return rows
}
