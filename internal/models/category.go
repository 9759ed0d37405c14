/**
 * @description
 * Category database model.
 * Maps to the 'categories' table in PostgreSQL. A category is a top-level
 * product line (one trading card game), keyed by the upstream feed's ID.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Category represents a top-level game/product line.
// CategoryID is assigned upstream and is immutable; re-ingesting the same ID
// updates the row rather than creating a new one.
type Category struct {
	CategoryID  int       `gorm:"primaryKey;column:category_id" json:"category_id"`
	Name        string    `gorm:"column:name" json:"name"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	ModifiedOn  time.Time `gorm:"column:modified_on" json:"modified_on"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Category to `categories`
func (Category) TableName() string {
	return "categories"
}
