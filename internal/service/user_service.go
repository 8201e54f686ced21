package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/account-api/internal/auth"
	"github.com/spec-kit/account-api/internal/config"
	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/repository"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

// UserCreateInput is the registration payload after transport decoding.
type UserCreateInput struct {
	Email    string
	Username string
	Password string
	FullName *string
}

// UserService implements account CRUD and its permission rules.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// UserDependencies encapsulates collaborators of the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(cfg config.AuthConfig, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// Create registers a new account. The password is hashed before storage.
func (s *UserService) Create(ctx context.Context, in UserCreateInput) (_ *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Create")
	defer endSpan(span, &err)

	user, err := s.create(ctx, in, false)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, nil, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.Username,
	})
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *UserService) create(ctx context.Context, in UserCreateInput, superuser bool) (*domain.User, error) {
	username := auth.NormalizeUsername(in.Username)
	email := auth.NormalizeEmail(in.Email)

	if err := auth.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	fullName, err := normalizeFullName(in.FullName)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePasswordPolicy(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, "username", username, 0); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, "email", email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "")
	}
	return user, nil
}

// GetByID loads a user without permission checks.
func (s *UserService) GetByID(ctx context.Context, id int64) (_ *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService.GetByID")
	defer endSpan(span, &err)
	span.SetAttributes(attribute.Int64("user.id", id))

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, fmt.Sprint(id))
	}
	return user, nil
}

// Get returns user id as seen by actor: the owner or a superuser.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if !canAccess(actor, id) {
		return nil, apperrors.NewForbidden("not allowed to access this user")
	}
	return s.GetByID(ctx, id)
}

// Update applies patch to user id on behalf of actor.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id int64, patch domain.UserPatch) (_ *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Update")
	defer endSpan(span, &err)
	span.SetAttributes(attribute.Int64("user.id", id), attribute.Int64("actor.id", actor.ID))

	if !canAccess(actor, id) {
		return nil, apperrors.NewForbidden("the user doesn't have enough privileges")
	}
	if patch.TouchesPrivilegedFields() && !actor.IsSuperuser {
		return nil, apperrors.NewForbidden("only a superuser may change account flags")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, fmt.Sprint(id))
	}
	if patch.Empty() {
		return user, nil
	}

	changed, err := s.applyPatch(ctx, user, patch)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, fmt.Sprint(id))
	}

	s.publish(ctx, events.EventUserUpdated, user.ID, actor, events.UserUpdatedPayload{Fields: changed})
	s.logger.Info("user updated",
		zap.Int64("user_id", user.ID),
		zap.Int64("actor_id", actor.ID),
		zap.Strings("fields", changed))
	return user, nil
}

func (s *UserService) applyPatch(ctx context.Context, user *domain.User, patch domain.UserPatch) ([]string, error) {
	var changed []string

	if patch.Username != nil {
		username := auth.NormalizeUsername(*patch.Username)
		if err := auth.ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			if err := s.ensureUnique(ctx, "username", username, user.ID); err != nil {
				return nil, err
			}
			user.Username = username
			changed = append(changed, "username")
		}
	}
	if patch.Email != nil {
		email := auth.NormalizeEmail(*patch.Email)
		if err := auth.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureUnique(ctx, "email", email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
			changed = append(changed, "email")
		}
	}
	if patch.FullName != nil {
		fullName, err := normalizeFullName(patch.FullName)
		if err != nil {
			return nil, err
		}
		user.FullName = fullName
		changed = append(changed, "full_name")
	}
	if patch.Password != nil {
		if err := auth.ValidatePasswordPolicy(*patch.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*patch.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
		}
		user.PasswordHash = hash
		changed = append(changed, "password")
	}
	if patch.IsActive != nil && *patch.IsActive != user.IsActive {
		user.IsActive = *patch.IsActive
		changed = append(changed, "is_active")
	}
	if patch.IsSuperuser != nil && *patch.IsSuperuser != user.IsSuperuser {
		user.IsSuperuser = *patch.IsSuperuser
		changed = append(changed, "is_superuser")
	}
	return changed, nil
}

// Delete removes user id. Superuser only.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id int64) (err error) {
	ctx, span := startSpan(ctx, "UserService.Delete")
	defer endSpan(span, &err)
	span.SetAttributes(attribute.Int64("user.id", id), attribute.Int64("actor.id", actor.ID))

	if !actor.IsSuperuser {
		return apperrors.NewForbidden("the user doesn't have enough privileges")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, fmt.Sprint(id))
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapRepoError(err, fmt.Sprint(id))
	}

	s.publish(ctx, events.EventUserDeleted, id, actor, events.UserDeletedPayload{Username: user.Username})
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

// EnsureSuperuser creates the configured bootstrap superuser when it does not exist yet.
func (s *UserService) EnsureSuperuser(ctx context.Context, cfg config.AuthConfig) error {
	if cfg.FirstSuperuserUsername == "" || cfg.FirstSuperuserEmail == "" || cfg.FirstSuperuserPassword == "" {
		return nil
	}

	_, err := s.users.GetByUsername(ctx, auth.NormalizeUsername(cfg.FirstSuperuserUsername))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup first superuser: %w", err)
	}

	user, err := s.create(ctx, UserCreateInput{
		Email:    cfg.FirstSuperuserEmail,
		Username: cfg.FirstSuperuserUsername,
		Password: cfg.FirstSuperuserPassword,
	}, true)
	if err != nil {
		return fmt.Errorf("create first superuser: %w", err)
	}
	s.logger.Info("first superuser created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

// ensureUnique fails with a conflict when value is taken by a user other than self.
func (s *UserService) ensureUnique(ctx context.Context, field, value string, self int64) error {
	var (
		existing *domain.User
		err      error
	)
	switch field {
	case "username":
		existing, err = s.users.GetByUsername(ctx, value)
	case "email":
		existing, err = s.users.GetByEmail(ctx, value)
	default:
		return fmt.Errorf("unknown unique field %q", field)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("lookup %s: %w", field, err))
	}
	if existing.ID == self {
		return nil
	}
	return conflict(field, value)
}

func (s *UserService) publish(ctx context.Context, typ events.EventType, userID int64, actor *domain.User, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		UserID:    userID,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = &domain.Actor{UserID: actor.ID, Username: actor.Username}
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func canAccess(actor *domain.User, id int64) bool {
	return actor != nil && (actor.ID == id || actor.IsSuperuser)
}

func normalizeFullName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}
	if err := auth.ValidateFullName(trimmed); err != nil {
		return nil, err
	}
	return &trimmed, nil
}

func conflict(field, value string) error {
	return apperrors.NewConflict(
		fmt.Sprintf("User with %s='%s' already exists", field, value),
		map[string]any{"resource": "User", "field": field, "value": value},
	)
}

// mapRepoError translates repository sentinels into domain errors.
func mapRepoError(err error, id string) error {
	var dup *repository.DuplicateError
	switch {
	case errors.As(err, &dup):
		return apperrors.NewConflict(
			fmt.Sprintf("User with this %s already exists", dup.Field),
			map[string]any{"resource": "User", "field": dup.Field},
		)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("user", map[string]any{"resource": "User", "identifier": id})
	default:
		return apperrors.NewInternalError(err)
	}
}
