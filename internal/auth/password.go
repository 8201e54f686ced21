package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

// Password and username bounds.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
	MaxPasswordBytes  = 72
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxFullNameLength = 100
)

var validate = validator.New()

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidatePasswordPolicy enforces length, one uppercase letter and one digit. The encoded
// password must also fit bcrypt's 72 byte input limit.
func ValidatePasswordPolicy(password string) error {
	n := len([]rune(password))
	if n < MinPasswordLength {
		return apperrors.NewFieldValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		return apperrors.NewFieldValidationError("password", fmt.Sprintf("must be at most %d characters", MaxPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return apperrors.NewFieldValidationError("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return apperrors.NewFieldValidationError("password", "must contain at least one uppercase letter")
	}
	if !hasDigit {
		return apperrors.NewFieldValidationError("password", "must contain at least one digit")
	}
	return nil
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername accepts 3-50 letters, digits, '_' and '-'.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < MinUsernameLength || n > MaxUsernameLength {
		return apperrors.NewFieldValidationError("username",
			fmt.Sprintf("must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return apperrors.NewFieldValidationError("username", "must be alphanumeric (can include _ and -)")
		}
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail requires a bare address such as user@example.com.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=320"); err != nil {
		return apperrors.NewFieldValidationError("email", "must be a valid email address")
	}
	return nil
}

// ValidateFullName bounds the display name length.
func ValidateFullName(name string) error {
	if len([]rune(name)) > MaxFullNameLength {
		return apperrors.NewFieldValidationError("full_name", fmt.Sprintf("must be at most %d characters", MaxFullNameLength))
	}
	return nil
}
