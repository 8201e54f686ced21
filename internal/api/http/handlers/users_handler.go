package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-api/internal/api/dto"
	"github.com/spec-kit/account-api/internal/auth"
	"github.com/spec-kit/account-api/internal/service"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), service.UserCreateInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return c.JSON(dto.NewUserResponse(principal.User))
}

// UpdateMe handles PATCH /users/me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return h.update(c, principal, principal.User.ID)
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.UserContext(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update handles PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	return h.update(c, principal, id)
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.UserContext(), principal.User, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UsersHandler) update(c *fiber.Ctx, principal *auth.Principal, id int64) error {
	var req dto.UserUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.UserContext(), principal.User, id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewFieldValidationError("id", "must be a positive integer")
	}
	return id, nil
}
