package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-api/internal/config"
	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/events"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

func ptr[T any](v T) *T { return &v }

func TestUserService_Create(t *testing.T) {
	f := newServiceFixture(t)

	user, err := f.userSvc.Create(context.Background(), UserCreateInput{
		Email:    "  Ann@Example.com ",
		Username: "Ann_Lee",
		Password: testPassword,
		FullName: ptr("  Ann Lee "),
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "ann_lee", user.Username)
	assert.Equal(t, "ann@example.com", user.Email)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Ann Lee", *user.FullName)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, testPassword, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(testPassword)))
	assert.Equal(t, []events.EventType{events.EventUserRegistered}, f.eventTypes())
}

func TestUserService_CreateRejectsInvalidInput(t *testing.T) {
	cases := map[string]UserCreateInput{
		"short password":   {Email: "a@example.com", Username: "ann", Password: "short1"},
		"no uppercase":     {Email: "a@example.com", Username: "ann", Password: "alllowercase1"},
		"no digit":         {Email: "a@example.com", Username: "ann", Password: "NoDigitsHere"},
		"bad email":        {Email: "not-an-email", Username: "ann", Password: testPassword},
		"short username":   {Email: "a@example.com", Username: "an", Password: testPassword},
		"username symbols": {Email: "a@example.com", Username: "ann!", Password: testPassword},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := newServiceFixture(t)
			_, err := f.userSvc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)
			assert.Empty(t, f.published)
		})
	}
}

func TestUserService_CreateDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "ann")

	_, err := f.userSvc.Create(context.Background(), UserCreateInput{
		Email: "other@example.com", Username: "ANN", Password: testPassword,
	})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, "username", de.Details["field"])

	_, err = f.userSvc.Create(context.Background(), UserCreateInput{
		Email: "ann@example.com", Username: "other", Password: testPassword,
	})
	de = apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, "email", de.Details["field"])
}

func TestUserService_GetPermissions(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	bob := f.register(t, "bob")
	root := f.superuser(t, "root")
	ctx := context.Background()

	got, err := f.userSvc.Get(ctx, ann, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)

	_, err = f.userSvc.Get(ctx, ann, bob.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.userSvc.Get(ctx, ann, 9999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	got, err = f.userSvc.Get(ctx, root, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = f.userSvc.Get(ctx, root, 9999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUserService_UpdateSelf(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	ctx := context.Background()

	updated, err := f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{
		FullName: ptr("Ann Lee"),
		Password: ptr("NewSecret456"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, "Ann Lee", *updated.FullName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("NewSecret456")))

	last := f.published[len(f.published)-1]
	assert.Equal(t, events.EventUserUpdated, last.Type)
	assert.Equal(t, events.UserUpdatedPayload{Fields: []string{"full_name", "password"}}, last.Payload)
}

func TestUserService_UpdatePermissions(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	bob := f.register(t, "bob")
	root := f.superuser(t, "root")
	ctx := context.Background()

	_, err := f.userSvc.Update(ctx, ann, bob.ID, domain.UserPatch{FullName: ptr("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{IsSuperuser: ptr(true)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{IsActive: ptr(false)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	updated, err := f.userSvc.Update(ctx, root, bob.ID, domain.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = f.userSvc.Update(ctx, root, 9999, domain.UserPatch{FullName: ptr("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUserService_UpdateConflictsAndValidation(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	f.register(t, "bob")
	ctx := context.Background()

	_, err := f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{Username: ptr("bob")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{Email: ptr("bob@example.com")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{Password: ptr("weak")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	same, err := f.userSvc.Update(ctx, ann, ann.ID, domain.UserPatch{Username: ptr("ann")})
	require.NoError(t, err)
	assert.Equal(t, "ann", same.Username)
}

func TestUserService_UpdateEmptyPatch(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	before := len(f.published)

	got, err := f.userSvc.Update(context.Background(), ann, ann.ID, domain.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, ann.UpdatedAt, got.UpdatedAt)
	assert.Len(t, f.published, before)
}

func TestUserService_Delete(t *testing.T) {
	f := newServiceFixture(t)
	ann := f.register(t, "ann")
	bob := f.register(t, "bob")
	root := f.superuser(t, "root")
	ctx := context.Background()

	err := f.userSvc.Delete(ctx, ann, bob.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	err = f.userSvc.Delete(ctx, ann, ann.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	require.NoError(t, f.userSvc.Delete(ctx, root, bob.ID))
	_, err = f.userSvc.GetByID(ctx, bob.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	err = f.userSvc.Delete(ctx, root, bob.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	assert.Equal(t, events.EventUserDeleted, f.published[len(f.published)-1].Type)
}

func TestUserService_EnsureSuperuser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	cfg := config.AuthConfig{
		FirstSuperuserEmail:    "admin@example.com",
		FirstSuperuserUsername: "admin",
		FirstSuperuserPassword: "Admin12345",
	}

	require.NoError(t, f.userSvc.EnsureSuperuser(ctx, cfg))
	admin, err := f.users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsActive)

	require.NoError(t, f.userSvc.EnsureSuperuser(ctx, cfg))
	require.NoError(t, f.userSvc.EnsureSuperuser(ctx, config.AuthConfig{}))

	cfg.FirstSuperuserUsername = "admin2"
	cfg.FirstSuperuserPassword = "weak"
	assert.Error(t, f.userSvc.EnsureSuperuser(ctx, cfg))
}

func TestUserService_PasswordOverBcryptLimit(t *testing.T) {
	f := newServiceFixture(t)
	long := "A1" + strings.Repeat("a", 78)

	_, err := f.userSvc.Create(context.Background(), UserCreateInput{
		Email: "ann@example.com", Username: "ann", Password: long,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)

	ann := f.register(t, "ann")
	_, err = f.userSvc.Update(context.Background(), ann, ann.ID, domain.UserPatch{Password: &long})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)
}
