/**
 * @description
 * Service layer for catalog reads.
 * Serves categories, groups and products to the API surface, preferring the
 * Redis cache for the small, hot category/group listings.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 * - backend/internal/models
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

const (
	CacheKeyCategories = "catalog:categories"
	catalogCacheTTL    = 10 * time.Minute

	defaultProductPageSize = 50
	maxProductPageSize     = 200
)

type CatalogService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewCatalogService(db *gorm.DB, rdb *redis.Client) *CatalogService {
	return &CatalogService{DB: db, Redis: rdb}
}

// GetCategories returns all tracked categories, preferring Cache -> DB.
func (s *CatalogService) GetCategories(ctx context.Context) ([]models.Category, error) {
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, CacheKeyCategories).Result(); err == nil {
			var cats []models.Category
			if err := json.Unmarshal([]byte(val), &cats); err == nil {
				return cats, nil
			}
		}
	}

	var cats []models.Category
	if err := s.DB.WithContext(ctx).Order("display_name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(cats); err == nil {
			_ = s.Redis.Set(ctx, CacheKeyCategories, data, catalogCacheTTL).Err()
		}
	}

	return cats, nil
}

// GetGroups returns the groups (sets) of one category, newest first.
func (s *CatalogService) GetGroups(ctx context.Context, categoryID int) ([]models.Group, error) {
	cacheKey := fmt.Sprintf("catalog:groups:%d", categoryID)
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var groups []models.Group
			if err := json.Unmarshal([]byte(val), &groups); err == nil {
				return groups, nil
			}
		}
	}

	var groups []models.Group
	if err := s.DB.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("published_on DESC NULLS LAST").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(groups); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, data, catalogCacheTTL).Err()
		}
	}

	return groups, nil
}

// GetProductsParams narrows a product listing.
type GetProductsParams struct {
	GroupID int
	Search  string
	Limit   int
	Offset  int
}

// GetProducts returns one page of a group's products.
func (s *CatalogService) GetProducts(ctx context.Context, params GetProductsParams) ([]models.Product, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultProductPageSize
	}
	if limit > maxProductPageSize {
		limit = maxProductPageSize
	}

	query := s.DB.WithContext(ctx).Where("group_id = ?", params.GroupID)
	if params.Search != "" {
		query = query.Where("clean_name LIKE ?", "%"+params.Search+"%")
	}

	var products []models.Product
	if err := query.Order("name ASC").Limit(limit).Offset(params.Offset).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product with presale info, extended data and
// subtypes attached.
func (s *CatalogService) GetProduct(ctx context.Context, productID int) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).
		Preload("PresaleInfo").
		Preload("ExtendedData").
		Preload("Subtypes").
		First(&product, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}
