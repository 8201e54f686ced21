package handlers

import "github.com/gofiber/fiber/v2"

// RootHandler describes the running service.
type RootHandler struct {
	name        string
	version     string
	environment string
}

// NewRootHandler constructs handler.
func NewRootHandler(name, version, environment string) *RootHandler {
	return &RootHandler{name: name, version: version, environment: environment}
}

// Info handles GET /.
func (h *RootHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        h.name,
		"version":     h.version,
		"environment": h.environment,
	})
}
