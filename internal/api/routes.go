/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 */

package api

import (
	"github.com/cardvault-project/backend/internal/api/handlers"
	"github.com/cardvault-project/backend/internal/config"
	"github.com/cardvault-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Services
	catalogService := services.NewCatalogService(db, rdb)
	timelineService := services.NewTimelineService(db, rdb)

	// 2. Initialize Handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	timelineHandler := handlers.NewTimelineHandler(timelineService)

	// 3. Define Routes
	apiGroup := app.Group("/api")
	v1 := apiGroup.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Get("/categories", catalogHandler.GetCategories)
	v1.Get("/categories/:id/groups", catalogHandler.GetGroups)
	v1.Get("/groups/:id/products", catalogHandler.GetProducts)
	v1.Get("/products/:id", catalogHandler.GetProduct)
	v1.Get("/products/:id/timeline", timelineHandler.GetTimeline)
}
