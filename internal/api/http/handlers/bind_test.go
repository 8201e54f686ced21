package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-api/internal/api/dto"
	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	err := validateStruct(&dto.UserCreateRequest{Email: "nope", Username: "ab", Password: "Secret123"})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)

	fields, ok := de.Details["fields"].([]FieldError)
	require.True(t, ok)
	got := map[string]FieldError{}
	for _, f := range fields {
		got[f.Field] = f
	}
	assert.Equal(t, "email", got["email"].Rule)
	assert.Equal(t, "min", got["username"].Rule)
	assert.Equal(t, "3", got["username"].Param)
	assert.Equal(t, "must be at least 3 characters", got["username"].Message)
}

func TestValidateStruct_PatchAllowsAbsentFields(t *testing.T) {
	require.NoError(t, validateStruct(&dto.UserUpdateRequest{}))

	bad := "x"
	err := validateStruct(&dto.UserUpdateRequest{Username: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
