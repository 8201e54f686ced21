package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

// RequireSuperuser ensures the authenticated caller carries the superuser flag.
func RequireSuperuser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.IsSuperuser {
			return apperrors.NewForbidden("the user doesn't have enough privileges")
		}
		return c.Next()
	}
}
