package handler

import (
	"errors"

	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:   fiber.StatusBadRequest,
	service.KindConflict:     fiber.StatusConflict,
	service.KindNotFound:     fiber.StatusNotFound,
	service.KindInvariant:    fiber.StatusBadRequest,
	service.KindUnauthorized: fiber.StatusUnauthorized,
	service.KindForbidden:    fiber.StatusForbidden,
}

func errorJSON(code, message string) fiber.Map {
	return fiber.Map{"error": fiber.Map{"code": code, "message": message}}
}

// writeError maps service errors to their HTTP status. Anything else is a
// 500 and gets logged.
func writeError(c *fiber.Ctx, err error) error {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorJSON("INTERNAL_ERROR", "internal server error"))
	}

	body := fiber.Map{"code": svcErr.Code, "message": svcErr.Message}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	if svcErr.Invariant != "" {
		body["invariant"] = svcErr.Invariant
	}
	if svcErr.ProductID != uuid.Nil {
		body["product_id"] = svcErr.ProductID
	}
	if svcErr.ItemID != uuid.Nil {
		body["item_id"] = svcErr.ItemID
	}

	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": body})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorJSON("BAD_REQUEST", message))
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(param))
	return id, err == nil
}
