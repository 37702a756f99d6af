package memory

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/postboard/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r *UsersRepo) Create(_ context.Context, email, passwordHash string, fullName *string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.emails[email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	// ids come from a counter that never rewinds, so deleted ids are not reused
	r.s.nextUserID++
	u := cloneUser(user.User{
		ID:           r.s.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
	})

	r.s.users[u.ID] = u
	r.s.emails[email] = u.ID

	return cloneUser(u), nil
}

func (r *UsersRepo) Update(_ context.Context, id int64, changes user.Changes) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if changes.FullName != nil {
		v := *changes.FullName
		u.FullName = &v
	}
	if changes.PasswordHash != nil {
		u.PasswordHash = *changes.PasswordHash
	}

	r.s.users[id] = u
	return cloneUser(u), nil
}

func (r *UsersRepo) SetLastLogin(_ context.Context, id int64, at time.Time) error {
	return r.touch(id, func(u *user.User) { u.LastLogin = &at })
}

func (r *UsersRepo) SetLastLogout(_ context.Context, id int64, at time.Time) error {
	return r.touch(id, func(u *user.User) { u.LastLogout = &at })
}

func (r *UsersRepo) touch(id int64, fn func(u *user.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

// Delete removes the user and cascades to their posts.
func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}

	delete(r.s.users, id)
	delete(r.s.emails, u.Email)

	for pid, p := range r.s.posts {
		if p.UserID == id {
			delete(r.s.posts, pid)
		}
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.Filter(ctx, user.Filter{})
}

func (r *UsersRepo) Filter(_ context.Context, f user.Filter) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if matches(u, f) {
			out = append(out, cloneUser(u))
		}
	}
	return sortedUsers(out), nil
}

func matches(u user.User, f user.Filter) bool {
	if f.ID != nil && u.ID != *f.ID {
		return false
	}
	if f.Email != nil && !containsFold(u.Email, *f.Email) {
		return false
	}
	if f.FullName != nil && (u.FullName == nil || !containsFold(*u.FullName, *f.FullName)) {
		return false
	}
	if f.LoginAfter != nil && (u.LastLogin == nil || u.LastLogin.Before(*f.LoginAfter)) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
