/**
 * @description
 * Price history database model.
 * Maps to the 'product_prices' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - Append-only time series: rows are never updated, corrections happen by
 *   inserting a new observation.
 * - The composite primary key (id, recorded_at) keeps the table compatible
 *   with time-partitioned storage (partitioning on recorded_at).
 */

package models

import (
	"time"
)

// ProductPrice is one immutable price observation for a product subtype.
// All price fields are nullable; an absent price stays NULL, it is never
// coerced to zero.
type ProductPrice struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductSubtypeID uint64    `gorm:"column:product_subtype_id;index:idx_price_subtype_time" json:"product_subtype_id"`
	RecordedAt       time.Time `gorm:"primaryKey;column:recorded_at;index:idx_price_subtype_time" json:"recorded_at"`
	LowPrice         *float64  `gorm:"column:low_price;type:decimal(12,4)" json:"low_price"`
	MidPrice         *float64  `gorm:"column:mid_price;type:decimal(12,4)" json:"mid_price"`
	HighPrice        *float64  `gorm:"column:high_price;type:decimal(12,4)" json:"high_price"`
	MarketPrice      *float64  `gorm:"column:market_price;type:decimal(12,4)" json:"market_price"`
	DirectLowPrice   *float64  `gorm:"column:direct_low_price;type:decimal(12,4)" json:"direct_low_price"`
}

// TableName overrides the table name used by ProductPrice to `product_prices`
func (ProductPrice) TableName() string {
	return "product_prices"
}
