package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/account-api/internal/auth"
	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/observability"
	"github.com/spec-kit/account-api/internal/repository"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

const (
	invalidCredentials = "invalid credentials"
	dummyPassword      = "Dummy-password-for-timing-1"
)

// AuthService coordinates login, refresh and logout flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	denylist   repository.TokenDenylist
	limiter    repository.LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	dummyHash  string
}

// AuthDependencies encapsulates collaborators of the auth service. Denylist, Limiter,
// Dispatcher and Metrics are optional. BcryptCost must match the cost user passwords are
// hashed with.
type AuthDependencies struct {
	BcryptCost int
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Denylist   repository.TokenDenylist
	Limiter    repository.LoginLimiter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Unknown usernames are compared against this hash so they cost the same as wrong passwords.
	dummyHash, err := auth.HashPassword(dummyPassword, deps.BcryptCost)
	if err != nil {
		logger.Error("failed to build dummy password hash", zap.Error(err))
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		denylist:   deps.Denylist,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		dummyHash:  dummyHash,
	}
}

// Login verifies credentials and issues an access/refresh token pair. Unknown usernames and
// wrong passwords fail identically. clientKey scopes rate limiting and may be empty.
func (s *AuthService) Login(ctx context.Context, username, password, clientKey string) (_ *domain.User, _ domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer endSpan(span, &err)

	if err := s.checkRateLimit(ctx, clientKey); err != nil {
		return nil, domain.TokenPair{}, err
	}

	user, err := s.users.GetByUsername(ctx, auth.NormalizeUsername(username))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TokenPair{}, apperrors.NewInternalError(fmt.Errorf("lookup user: %w", err))
		}
		_ = auth.ComparePassword(s.dummyHash, password)
		return nil, domain.TokenPair{}, s.loginFailed(username)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.TokenPair{}, s.loginFailed(username)
	}
	if !user.IsActive {
		s.metrics.RecordAuthEvent("login_inactive")
		s.logger.Warn("login attempt for inactive user", zap.Int64("user_id", user.ID))
		return nil, domain.TokenPair{}, apperrors.NewForbidden("inactive user")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, domain.TokenPair{}, apperrors.NewInternalError(err)
	}

	s.metrics.RecordAuthEvent("login_success")
	s.publish(ctx, events.EventUserLoggedIn, user)
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair and revokes the old refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, "AuthService.Refresh")
	defer endSpan(span, &err)

	claims, err := s.tokens.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, auth.ErrWrongTokenType) {
			return domain.TokenPair{}, apperrors.NewUnauthorized("refresh token required")
		}
		return domain.TokenPair{}, apperrors.NewUnauthorized("invalid refresh token")
	}
	if s.isRevoked(ctx, claims.ID) {
		return domain.TokenPair{}, apperrors.NewUnauthorized("token has been revoked")
	}

	userID, err := claims.UserID()
	if err != nil {
		return domain.TokenPair{}, apperrors.NewUnauthorized("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, apperrors.NewUnauthorized("user not found")
		}
		return domain.TokenPair{}, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return domain.TokenPair{}, apperrors.NewForbidden("inactive user")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, apperrors.NewInternalError(err)
	}
	s.revoke(ctx, claims)
	s.metrics.RecordAuthEvent("refresh")
	return pair, nil
}

// Logout revokes the caller's access token and, when given, a refresh token of the same
// user. Tokens are otherwise stateless, so logout always succeeds.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal, refreshToken string) (err error) {
	ctx, span := startSpan(ctx, "AuthService.Logout")
	defer endSpan(span, &err)

	if principal == nil {
		return nil
	}
	s.revoke(ctx, principal.Claims)

	if refreshToken != "" {
		if claims, err := s.tokens.Verify(refreshToken, domain.TokenTypeRefresh); err == nil && claims.Subject == principal.Claims.Subject {
			s.revoke(ctx, claims)
		}
	}

	s.metrics.RecordAuthEvent("logout")
	s.publish(ctx, events.EventUserLoggedOut, principal.User)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) checkRateLimit(ctx context.Context, clientKey string) error {
	if s.limiter == nil || clientKey == "" {
		return nil
	}
	allowed, retryAfter, err := s.limiter.Allow(ctx, "login:"+clientKey)
	if err != nil {
		s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !allowed {
		s.metrics.RecordAuthEvent("login_rate_limited")
		return apperrors.NewRateLimited(retryAfter)
	}
	return nil
}

func (s *AuthService) loginFailed(username string) error {
	s.metrics.RecordAuthEvent("login_failure")
	s.logger.Warn("failed login attempt", zap.String("username", username))
	return apperrors.NewUnauthorized(invalidCredentials)
}

func (s *AuthService) isRevoked(ctx context.Context, jti string) bool {
	if s.denylist == nil {
		return false
	}
	revoked, err := s.denylist.IsRevoked(ctx, jti)
	if err != nil {
		s.logger.Warn("token denylist unavailable", zap.Error(err))
		return false
	}
	return revoked
}

// revoke denylists a token for the rest of its lifetime.
func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) {
	if s.denylist == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("failed to revoke token", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, typ events.EventType, user *domain.User) {
	if s.dispatcher == nil || user == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		UserID:    user.ID,
		Actor:     &domain.Actor{UserID: user.ID, Username: user.Username},
		Timestamp: time.Now().UTC(),
	})
}
