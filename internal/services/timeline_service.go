/**
 * @description
 * Service layer for price timelines.
 * Aggregates a product's stored price observations into fixed time buckets
 * (avg/min/max/count per price field, per subtype) for charting, with a
 * short-TTL Redis cache in front of the database.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 * - backend/internal/models
 *
 * @notes
 * - Read-only and deterministic: the same stored data and input range always
 *   produce the same buckets.
 * - Null price fields are excluded from that field's aggregates, never
 *   treated as zero.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cardvault-project/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound means the requested product was never ingested.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidRange means start >= end.
	ErrInvalidRange = errors.New("start date must be before end date")
	// ErrUnknownInterval means the bucket interval is not one of the fixed set.
	ErrUnknownInterval = errors.New("unknown bucket interval")
)

const (
	timelineCacheTTL = 5 * time.Minute
)

// BucketInterval is one of the fixed set of aggregation intervals.
type BucketInterval string

const (
	Interval1Hour   BucketInterval = "1h"
	Interval6Hours  BucketInterval = "6h"
	Interval12Hours BucketInterval = "12h"
	Interval1Day    BucketInterval = "1d"
	Interval1Week   BucketInterval = "1w"
	Interval1Month  BucketInterval = "1mo"
)

// ParseBucketInterval validates an interval string from the API surface.
func ParseBucketInterval(s string) (BucketInterval, error) {
	switch BucketInterval(s) {
	case Interval1Hour, Interval6Hours, Interval12Hours, Interval1Day, Interval1Week, Interval1Month:
		return BucketInterval(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// Truncate snaps t down to the interval boundary containing it, in UTC.
func (b BucketInterval) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch b {
	case Interval1Hour:
		return t.Truncate(time.Hour)
	case Interval6Hours:
		return t.Truncate(6 * time.Hour)
	case Interval12Hours:
		return t.Truncate(12 * time.Hour)
	case Interval1Day:
		return t.Truncate(24 * time.Hour)
	case Interval1Week:
		day := t.Truncate(24 * time.Hour)
		// Weeks start on Monday.
		return day.AddDate(0, 0, -int((day.Weekday()+6)%7))
	case Interval1Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// FieldStats aggregates one price field over the non-null observations in a
// bucket.
type FieldStats struct {
	Avg   *float64 `json:"avg"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Count int      `json:"count"`
}

// PriceBucket is one aggregated time bucket for a subtype.
type PriceBucket struct {
	BucketStart time.Time  `json:"bucket_start"`
	DataPoints  int        `json:"data_points"`
	Low         FieldStats `json:"low"`
	Mid         FieldStats `json:"mid"`
	High        FieldStats `json:"high"`
	Market      FieldStats `json:"market"`
	DirectLow   FieldStats `json:"direct_low"`
}

// SubtypeTimeline carries the bucket series for one sale variant.
type SubtypeTimeline struct {
	SubtypeID   uint64        `json:"subtype_id"`
	SubTypeName string        `json:"sub_type_name"`
	Buckets     []PriceBucket `json:"buckets"`
}

// Timeline is the full aggregation result for a product.
type Timeline struct {
	ProductID int               `json:"product_id"`
	Interval  BucketInterval    `json:"interval"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Subtypes  []SubtypeTimeline `json:"subtypes"`
}

type TimelineService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewTimelineService(db *gorm.DB, rdb *redis.Client) *TimelineService {
	return &TimelineService{DB: db, Redis: rdb}
}

// GetPriceTimeline returns per-subtype bucketed aggregates for a product's
// price history in [start, end). A product with no subtypes or no
// observations in range yields an empty timeline, not an error.
func (s *TimelineService) GetPriceTimeline(ctx context.Context, productID int, start, end time.Time, interval BucketInterval) (*Timeline, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	cacheKey := fmt.Sprintf("timeline:%d:%d:%d:%s", productID, start.Unix(), end.Unix(), interval)
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached Timeline
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
			// Corrupt cache entry falls through to the DB.
		}
	}

	var product models.Product
	if err := s.DB.WithContext(ctx).First(&product, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	var subtypes []models.ProductSubtype
	if err := s.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sub_type_name ASC").
		Find(&subtypes).Error; err != nil {
		return nil, err
	}

	timeline := &Timeline{
		ProductID: productID,
		Interval:  interval,
		Start:     start.UTC(),
		End:       end.UTC(),
		Subtypes:  make([]SubtypeTimeline, 0, len(subtypes)),
	}

	for _, subtype := range subtypes {
		var prices []models.ProductPrice
		if err := s.DB.WithContext(ctx).
			Where("product_subtype_id = ? AND recorded_at >= ? AND recorded_at < ?", subtype.ID, start, end).
			Order("recorded_at ASC").
			Find(&prices).Error; err != nil {
			return nil, err
		}
		if len(prices) == 0 {
			continue
		}
		timeline.Subtypes = append(timeline.Subtypes, SubtypeTimeline{
			SubtypeID:   subtype.ID,
			SubTypeName: subtype.SubTypeName,
			Buckets:     bucketize(prices, interval),
		})
	}

	if s.Redis != nil {
		if data, err := json.Marshal(timeline); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, data, timelineCacheTTL).Err()
		}
	}

	return timeline, nil
}

// bucketize groups observations by truncated timestamp and aggregates each
// price field. Input must be ordered by recorded_at ascending; output buckets
// are in chronological order.
func bucketize(prices []models.ProductPrice, interval BucketInterval) []PriceBucket {
	var buckets []PriceBucket
	byStart := make(map[time.Time]int)

	for _, p := range prices {
		bucketStart := interval.Truncate(p.RecordedAt)
		idx, ok := byStart[bucketStart]
		if !ok {
			idx = len(buckets)
			byStart[bucketStart] = idx
			buckets = append(buckets, PriceBucket{BucketStart: bucketStart})
		}
		b := &buckets[idx]
		b.DataPoints++
		accumulate(&b.Low, p.LowPrice)
		accumulate(&b.Mid, p.MidPrice)
		accumulate(&b.High, p.HighPrice)
		accumulate(&b.Market, p.MarketPrice)
		accumulate(&b.DirectLow, p.DirectLowPrice)
	}

	// During accumulation Avg holds the running sum; finalize it here.
	for i := range buckets {
		finalize(&buckets[i].Low)
		finalize(&buckets[i].Mid)
		finalize(&buckets[i].High)
		finalize(&buckets[i].Market)
		finalize(&buckets[i].DirectLow)
	}

	return buckets
}

func accumulate(stats *FieldStats, value *float64) {
	if value == nil {
		return
	}
	v := *value
	stats.Count++
	if stats.Avg == nil {
		sum, minV, maxV := v, v, v
		stats.Avg, stats.Min, stats.Max = &sum, &minV, &maxV
		return
	}
	*stats.Avg += v
	if v < *stats.Min {
		*stats.Min = v
	}
	if v > *stats.Max {
		*stats.Max = v
	}
}

func finalize(stats *FieldStats) {
	if stats.Avg != nil && stats.Count > 0 {
		*stats.Avg /= float64(stats.Count)
	}
}
