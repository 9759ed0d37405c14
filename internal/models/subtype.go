/**
 * @description
 * ProductSubtype database model.
 * Maps to the 'product_subtypes' table. A subtype is one sale variant of a
 * product (e.g. "Normal" vs "Holofoil") with its own price series.
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - Subtypes are discovered lazily from the price feed: first observation
 *   creates the row, later passes never overwrite or delete it.
 */

package models

import (
	"time"
)

// ProductSubtype is a sale variant of a product. Unique on (product_id, sub_type_name).
type ProductSubtype struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int       `gorm:"column:product_id;uniqueIndex:idx_subtype_product_name" json:"product_id"`
	SubTypeName string    `gorm:"column:sub_type_name;uniqueIndex:idx_subtype_product_name" json:"sub_type_name"`
	IsActive    bool      `gorm:"column:is_active;default:true" json:"is_active"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at" json:"last_seen_at"`
}

// TableName overrides the table name used by ProductSubtype to `product_subtypes`
func (ProductSubtype) TableName() string {
	return "product_subtypes"
}
