package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geocoder89/postboard/internal/domain"
	"github.com/geocoder89/postboard/internal/domain/user"
)

const maxPasswordBytes = 72

var ErrInvalidPassword = fmt.Errorf("password must be 1-%d bytes: %w", maxPasswordBytes, domain.ErrBadRequest)

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	posts  PostsInvalidator
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users UserStore, hasher PasswordHasher, posts PostsInvalidator) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		posts:  posts,
		now:    utcNow,
	}
}

// Register creates an account. The pre-check gives a clean Conflict in the
// common case; the store's unique index settles concurrent registrations.
func (s *UserService) Register(ctx context.Context, email, password string, fullName *string) (user.User, error) {
	email = user.NormalizeEmail(email)

	if err := checkPassword(password); err != nil {
		return user.User{}, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user.User{}, user.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return user.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, email, hash, fullName)
}

// Authenticate checks credentials and stamps last_login. Unknown email and
// wrong password produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// burn a comparison so timing does not reveal whether the email exists
			s.hasher.Verify(password, s.timingHash())
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return user.User{}, user.ErrInvalidCredentials
	}

	at := s.now()
	if err := s.users.SetLastLogin(ctx, u.ID, at); err != nil {
		// deleted since the lookup
		if errors.Is(err, domain.ErrNotFound) {
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, err
	}
	u.LastLogin = &at

	return u, nil
}

// UpdateProfile applies only the provided fields; a new password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, current user.User, upd user.ProfileUpdate) (user.User, error) {
	var changes user.Changes

	if upd.FullName != nil {
		name := *upd.FullName
		changes.FullName = &name
	}

	if upd.Password != nil {
		if err := checkPassword(*upd.Password); err != nil {
			return user.User{}, err
		}
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		changes.PasswordHash = &hash
	}

	if changes.FullName == nil && changes.PasswordHash == nil {
		return s.users.GetByID(ctx, current.ID)
	}

	return s.users.Update(ctx, current.ID, changes)
}

// RecordLogout stamps last_logout. Outstanding tokens stay valid until expiry.
func (s *UserService) RecordLogout(ctx context.Context, current user.User) error {
	return s.users.SetLastLogout(ctx, current.ID, s.now())
}

func (s *UserService) Delete(ctx context.Context, current user.User) error {
	if err := s.users.Delete(ctx, current.ID); err != nil {
		return err
	}

	if s.posts != nil {
		s.posts.InvalidateUser(ctx, current.ID)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id int64) (user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]user.User, error) {
	return nonNil(s.users.List(ctx))
}

// Search looks a single user up by exactly one of id or email.
func (s *UserService) Search(ctx context.Context, q user.Lookup) (user.User, error) {
	switch {
	case q.ID != nil && q.Email == nil:
		return s.users.GetByID(ctx, *q.ID)
	case q.Email != nil && q.ID == nil:
		return s.users.GetByEmail(ctx, user.NormalizeEmail(*q.Email))
	default:
		return user.User{}, user.ErrSearchCriteria
	}
}

// Filter returns users matching every provided criterion; no criteria means all users.
func (s *UserService) Filter(ctx context.Context, f user.Filter) ([]user.User, error) {
	if f.IsEmpty() {
		return s.List(ctx)
	}
	return nonNil(s.users.Filter(ctx, f))
}

func nonNil(users []user.User, err error) ([]user.User, error) {
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []user.User{}
	}
	return users, nil
}

func (s *UserService) timingHash() string {
	s.dummyOnce.Do(func() {
		// error leaves the hash empty; Verify then fails fast, which is still a rejection
		s.dummyHash, _ = s.hasher.Hash("postboard-timing-equaliser")
	})
	return s.dummyHash
}

func checkPassword(password string) error {
	if password == "" || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}
