package middleware

import (
	"context"
	"errors"
	"strings"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// Authenticator is the part of the auth service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*model.Principal, error)
}

func errorBody(code, message string) fiber.Map {
	return fiber.Map{"error": fiber.Map{"code": code, "message": message}}
}

// RequireAuth validates the bearer token and stores the caller's principal in locals.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("MISSING_TOKEN", "missing authorization token"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("INVALID_TOKEN", "invalid authorization format, use: Bearer <token>"))
		}

		principal, err := auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			var svcErr *service.Error
			if errors.As(err, &svcErr) {
				return c.Status(fiber.StatusUnauthorized).JSON(errorBody(svcErr.Code, svcErr.Message))
			}
			return err
		}

		c.Locals(principalKey, *principal)
		return c.Next()
	}
}

// Principal returns the authenticated caller, or the zero principal.
func Principal(c *fiber.Ctx) model.Principal {
	p, _ := c.Locals(principalKey).(model.Principal)
	return p
}

// RequirePrivilege checks that the authenticated caller holds a privilege.
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return RequireAnyPrivilege(requiredPrivilege)
}

// RequireAnyPrivilege checks that the caller holds at least one of the privileges.
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := c.Locals(principalKey).(model.Principal)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("FORBIDDEN", "no privileges found"))
		}
		for _, required := range requiredPrivileges {
			if p.Can(required) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(errorBody("FORBIDDEN",
			"requires one of "+strings.Join(requiredPrivileges, ", ")+" privileges"))
	}
}
