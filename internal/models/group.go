/**
 * @description
 * Group database model.
 * Maps to the 'groups' table in PostgreSQL. A group is a set/expansion within
 * a category (e.g. a booster set), keyed by the upstream feed's ID.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Group represents a set or expansion within a category.
type Group struct {
	GroupID        int        `gorm:"primaryKey;column:group_id" json:"group_id"`
	Name           string     `gorm:"column:name" json:"name"`
	Abbreviation   string     `gorm:"column:abbreviation" json:"abbreviation"`
	IsSupplemental bool       `gorm:"column:is_supplemental;default:false" json:"is_supplemental"`
	PublishedOn    *time.Time `gorm:"column:published_on" json:"published_on"`
	ModifiedOn     time.Time  `gorm:"column:modified_on" json:"modified_on"`
	CategoryID     *int       `gorm:"column:category_id;index" json:"category_id"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Group to `groups`
func (Group) TableName() string {
	return "groups"
}
