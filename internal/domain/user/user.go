package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/postboard/internal/domain"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	FullName     *string    `json:"full_name"`
	LastLogin    *time.Time `json:"last_login"`
	LastLogout   *time.Time `json:"last_logout"`
}

var (
	ErrNotFound           = fmt.Errorf("user not found: %w", domain.ErrNotFound)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", domain.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	ErrSearchCriteria     = fmt.Errorf("exactly one of id or email is required: %w", domain.ErrBadRequest)
)

// with pointers if optional, it will be nil
type Filter struct {
	ID         *int64
	Email      *string
	FullName   *string
	LoginAfter *time.Time
}

// IsEmpty reports whether no criterion is set.
func (f Filter) IsEmpty() bool {
	return f.ID == nil && f.Email == nil && f.FullName == nil && f.LoginAfter == nil
}

// Lookup selects a single user either by id or by email.
type Lookup struct {
	ID    *int64
	Email *string
}

// ProfileUpdate is a partial update: nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string
	Password *string
}

// Changes is what the store applies for a profile update, after hashing.
type Changes struct {
	FullName     *string
	PasswordHash *string
}

// NormalizeEmail makes email comparisons case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
