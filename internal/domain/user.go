package domain

import "time"

// User is an account holder. PasswordHash never leaves the service boundary.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string `json:"-"`
	FullName     *string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch carries a partial update; nil fields are left untouched.
type UserPatch struct {
	Email       *string
	Username    *string
	FullName    *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.Username == nil && p.FullName == nil &&
		p.Password == nil && p.IsActive == nil && p.IsSuperuser == nil
}

// TouchesPrivilegedFields reports whether the patch changes account flags.
func (p UserPatch) TouchesPrivilegedFields() bool {
	return p.IsActive != nil || p.IsSuperuser != nil
}
