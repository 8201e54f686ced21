package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/repository"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	denylist repository.TokenDenylist
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware. denylist may be nil.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, denylist repository.TokenDenylist, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, denylist: denylist, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}

	principal, err := m.authenticate(c, raw)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional loads a principal when a valid access token is presented and otherwise
// continues anonymously.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return c.Next()
	}
	if principal, err := m.authenticate(c, raw); err == nil {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, raw string) (*Principal, error) {
	claims, err := m.tokens.Verify(raw, domain.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, ErrWrongTokenType) {
			return nil, apperrors.NewUnauthorized("access token required")
		}
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			m.logger.Warn("token denylist unavailable", zap.Error(err))
		} else if revoked {
			return nil, apperrors.NewUnauthorized("token has been revoked")
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("inactive user")
	}

	return &Principal{User: user, Claims: claims}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
