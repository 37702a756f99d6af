package service

import (
	"context"
	"time"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
)

// UserStore is the persistence boundary for users. Implementations must
// reject a duplicate email with user.ErrEmailTaken and report a missing row
// with user.ErrNotFound; any other error is treated as unexpected.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash string, fullName *string) (user.User, error)
	Update(ctx context.Context, id int64, changes user.Changes) (user.User, error)
	SetLastLogin(ctx context.Context, id int64, at time.Time) error
	SetLastLogout(ctx context.Context, id int64, at time.Time) error
	// Delete removes the user and, through the store, every post they own.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]user.User, error)
	Filter(ctx context.Context, f user.Filter) ([]user.User, error)
}

// PostStore is the persistence boundary for posts.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (post.Post, error)
	Create(ctx context.Context, userID int64, text string, at time.Time) (post.Post, error)
	UpdateText(ctx context.Context, id int64, text string, at time.Time) (post.Post, error)
	Delete(ctx context.Context, id int64) (post.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]post.Post, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// PostsInvalidator drops cached post listings of a removed owner.
type PostsInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64)
}

func utcNow() time.Time {
	// Postgres keeps microseconds; truncating keeps in-memory and stored values equal.
	return time.Now().UTC().Truncate(time.Microsecond)
}
