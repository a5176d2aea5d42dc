package handler

import (
	"refurb-store-api/internal/report"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// GetRevenue returns the merged revenue report.
// Query params: window (7d|6mo, default 7d), include_cancelled
func (h *ReportHandler) GetRevenue(c *fiber.Ctx) error {
	window, err := report.ParseWindow(c.Query("window"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	r, err := h.service.Revenue(c.UserContext(), window, c.QueryBool("include_cancelled", false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(r)
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *ReportHandler) GetStockMovement(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 {
		days = 7
	}

	data, err := h.service.StockMovement(c.UserContext(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.DashboardStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}
