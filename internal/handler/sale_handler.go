package handler

import (
	"time"

	"refurb-store-api/internal/middleware"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	sales       service.SaleService
	allocations service.AllocationService
	location    *time.Location
}

// NewSaleHandler reads from/to dates as days in location, the zone the
// revenue buckets use. A nil location means UTC.
func NewSaleHandler(sales service.SaleService, allocations service.AllocationService, location *time.Location) *SaleHandler {
	if location == nil {
		location = time.UTC
	}
	return &SaleHandler{sales: sales, allocations: allocations, location: location}
}

// dayStart parses a YYYY-MM-DD date as midnight in loc, returned in UTC.
func dayStart(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type AllocateSerialsRequest struct {
	ItemAllocations []service.ItemAllocation `json:"itemAllocations"`
}

type OverrideSerialsRequest struct {
	Identifiers []string `json:"identifiers"`
	Reason      string   `json:"reason"`
}

type UpdateStatusRequest struct {
	Status model.SaleStatus `json:"status"`
}

// RecordSale records a sale on any channel.
// POST /api/v1/sales
func (h *SaleHandler) RecordSale(c *fiber.Ctx) error {
	var req service.RecordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	sale, err := h.sales.RecordSale(c.UserContext(), middleware.Principal(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// ListSales returns sales newest first.
// Query params: status, channel, active, from, to (YYYY-MM-DD), email, limit
func (h *SaleHandler) ListSales(c *fiber.Ctx) error {
	q := service.ListSalesQuery{
		Status:        model.SaleStatus(c.Query("status")),
		Channel:       model.Channel(c.Query("channel")),
		Active:        c.QueryBool("active", false),
		CustomerEmail: c.Query("email"),
		Limit:         c.QueryInt("limit", 0),
	}
	if from := c.Query("from"); from != "" {
		t, err := dayStart(from, h.location)
		if err != nil {
			return badRequest(c, "invalid from date, use YYYY-MM-DD")
		}
		q.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, h.location)
		if err != nil {
			return badRequest(c, "invalid to date, use YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1).UTC()
		q.To = &end
	}

	sales, err := h.sales.ListSales(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sales)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale ID")
	}
	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sale)
}

// AllocateSerials binds serials to every line and ships the order.
// PATCH /api/v1/sales/:id/serials
func (h *SaleHandler) AllocateSerials(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale ID")
	}
	var req AllocateSerialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	sale, err := h.allocations.AllocateSerials(c.UserContext(), middleware.Principal(c), id, req.ItemAllocations)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Serials allocated, order shipped", "data": sale})
}

// OverrideSerials corrects the serials of one shipped line.
// PUT /api/v1/sales/:id/serials/:itemId
func (h *SaleHandler) OverrideSerials(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale ID")
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return badRequest(c, "invalid item ID")
	}
	var req OverrideSerialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	sale, err := h.allocations.OverrideSerials(c.UserContext(), middleware.Principal(c), id, itemID, req.Identifiers, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Serials overridden", "data": sale})
}

func (h *SaleHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale ID")
	}
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	sale, err := h.sales.UpdateStatus(c.UserContext(), middleware.Principal(c), id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated", "data": sale})
}

func (h *SaleHandler) DeleteSale(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale ID")
	}
	if err := h.sales.DeleteSale(c.UserContext(), middleware.Principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale deleted"})
}
