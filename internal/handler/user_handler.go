package handler

import (
	"refurb-store-api/internal/middleware"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type UpdatePrivilegesRequest struct {
	Privileges []string `json:"privileges"`
}

// CreateUser handles user creation
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	user, err := h.userService.CreateUser(c.UserContext(), middleware.Principal(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"data":    user,
	})
}

// UpdateUserPrivileges handles privilege assignment
// PUT /api/v1/users/:id/privileges
func (h *UserHandler) UpdateUserPrivileges(c *fiber.Ctx) error {
	userID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user ID")
	}
	var req UpdatePrivilegesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	user, err := h.userService.UpdateUserPrivileges(c.UserContext(), middleware.Principal(c), userID, req.Privileges)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Privileges updated successfully", "data": user})
}

// UpdateUser handles user update
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user ID")
	}
	var req service.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}

	user, err := h.userService.UpdateUser(c.UserContext(), middleware.Principal(c), userID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User updated successfully", "data": user})
}

// DeleteUser handles user deletion
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	userID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user ID")
	}
	if err := h.userService.DeleteUser(c.UserContext(), middleware.Principal(c), userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// GetUsers returns all users
// GET /api/v1/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(users)
}

// GetUser returns a single user by ID
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user ID")
	}
	user, err := h.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}
