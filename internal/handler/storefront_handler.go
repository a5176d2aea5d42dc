package handler

import (
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StorefrontHandler serves the public shop. Checkout always records an
// online order as the storefront principal.
type StorefrontHandler struct {
	products service.ProductService
	sales    service.SaleService
}

func NewStorefrontHandler(products service.ProductService, sales service.SaleService) *StorefrontHandler {
	return &StorefrontHandler{products: products, sales: sales}
}

func (h *StorefrontHandler) Products(c *fiber.Ctx) error {
	products, err := h.products.ListProducts(c.UserContext(), repository.ProductFilter{
		Category:    c.Query("category"),
		Search:      c.Query("search"),
		InStockOnly: true,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *StorefrontHandler) Checkout(c *fiber.Ctx) error {
	var req service.RecordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	req.Channel = model.ChannelOnline

	sale, err := h.sales.RecordSale(c.UserContext(), model.StorefrontPrincipal, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Order placed", "data": sale})
}

// TrackOrders lists a shopper's orders.
// GET /api/v1/storefront/orders?email=
func (h *StorefrontHandler) TrackOrders(c *fiber.Ctx) error {
	orders, err := h.sales.TrackOrders(c.UserContext(), c.Query("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}
