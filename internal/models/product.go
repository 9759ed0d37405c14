/**
 * @description
 * Product database models.
 * Maps to the 'products', 'presale_info' and 'extended_data' tables.
 * A product is an individual sellable item (a card) within a group.
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - ExtendedData rows are fully replaced on every ingestion pass, not merged.
 */

package models

import (
	"time"
)

// Product represents a single card/item within a group.
// GroupID is a required reference; prices for products that were never
// ingested are dropped upstream of this table, never stored as orphans.
type Product struct {
	ProductID  int       `gorm:"primaryKey;column:product_id" json:"product_id"`
	Name       string    `gorm:"column:name" json:"name"`
	CleanName  string    `gorm:"column:clean_name" json:"clean_name"`
	CardNumber string    `gorm:"column:card_number" json:"card_number"`
	ImageURL   string    `gorm:"column:image_url" json:"image_url"`
	CategoryID int       `gorm:"column:category_id;index" json:"category_id"`
	GroupID    int       `gorm:"column:group_id;not null;index" json:"group_id"`
	URL        string    `gorm:"column:url" json:"url"`
	ModifiedOn time.Time `gorm:"column:modified_on" json:"modified_on"`
	ImageCount int       `gorm:"column:image_count" json:"image_count"`

	PresaleInfo  *PresaleInfo     `gorm:"foreignKey:ProductID" json:"presale_info,omitempty"`
	ExtendedData []ExtendedData   `gorm:"foreignKey:ProductID" json:"extended_data,omitempty"`
	Subtypes     []ProductSubtype `gorm:"foreignKey:ProductID" json:"subtypes,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Product to `products`
func (Product) TableName() string {
	return "products"
}

// PresaleInfo holds presale flags for a product, one-to-one with Product.
type PresaleInfo struct {
	ProductID  int        `gorm:"primaryKey;column:product_id" json:"product_id"`
	IsPresale  bool       `gorm:"column:is_presale;default:false" json:"is_presale"`
	ReleasedOn *time.Time `gorm:"column:released_on" json:"released_on"`
	Note       string     `gorm:"column:note" json:"note"`
}

// TableName overrides the table name used by PresaleInfo to `presale_info`
func (PresaleInfo) TableName() string {
	return "presale_info"
}

// ExtendedData is a free-form attribute row for a product (rarity, card text,
// attack/defense values and so on). The full set for a product is replaced on
// each ingestion pass.
type ExtendedData struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int    `gorm:"column:product_id;index" json:"product_id"`
	Name        string `gorm:"column:name" json:"name"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`
	Value       string `gorm:"column:value" json:"value"`
}

// TableName overrides the table name used by ExtendedData to `extended_data`
func (ExtendedData) TableName() string {
	return "extended_data"
}
