/**
 * @description
 * Catalog API handlers.
 * Exposes endpoints to browse categories, groups and products.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"errors"

	"github.com/cardvault-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	Service *services.CatalogService
}

func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

// GetCategories returns all tracked categories
// GET /api/v1/categories
func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	cats, err := h.Service.GetCategories(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch categories",
		})
	}
	return c.JSON(cats)
}

// GetGroups returns the groups of a category
// GET /api/v1/categories/:id/groups
func (h *CatalogHandler) GetGroups(c *fiber.Ctx) error {
	categoryID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid category id",
		})
	}

	groups, err := h.Service.GetGroups(c.Context(), categoryID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}
	return c.JSON(groups)
}

// GetProducts returns one page of a group's products
// GET /api/v1/groups/:id/products?search=&limit=&offset=
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	groupID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group id",
		})
	}

	products, err := h.Service.GetProducts(c.Context(), services.GetProductsParams{
		GroupID: groupID,
		Search:  c.Query("search"),
		Limit:   c.QueryInt("limit", 0),
		Offset:  c.QueryInt("offset", 0),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch products",
		})
	}
	return c.JSON(products)
}

// GetProduct returns one product with its presale info, attributes and subtypes
// GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product id",
		})
	}

	product, err := h.Service.GetProduct(c.Context(), productID)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch product",
		})
	}
	return c.JSON(product)
}
