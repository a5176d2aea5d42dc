package handler

import (
	"refurb-store-api/internal/middleware"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

type RestockRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// GetProducts lists the catalogue.
// Query params: category, search, in_stock
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), repository.ProductFilter{
		Category:    c.Query("category"),
		Search:      c.Query("search"),
		InStockOnly: c.QueryBool("in_stock", false),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid product ID")
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, "invalid JSON")
	}

	created, err := h.service.CreateProduct(c.UserContext(), middleware.Principal(c), &product)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": created})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid product ID")
	}
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, "invalid JSON")
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), middleware.Principal(c), id, &product)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

// Restock credits stock through the ledger.
// POST /api/v1/products/:id/restock
func (h *ProductHandler) Restock(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid product ID")
	}
	var req RestockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	product, err := h.service.Restock(c.UserContext(), middleware.Principal(c), id, req.Quantity, req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock credited", "data": product})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid product ID")
	}
	if err := h.service.DeleteProduct(c.UserContext(), middleware.Principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
