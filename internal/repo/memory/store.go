package memory

import (
	"sort"
	"sync"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
)

// Store keeps users and posts behind one lock so cascade deletes and the
// unique email index behave like the relational store.
type Store struct {
	mu         sync.RWMutex
	users      map[int64]user.User
	emails     map[string]int64
	posts      map[int64]post.Post
	nextUserID int64
	nextPostID int64
}

func NewStore() *Store {
	return &Store{
		users:  make(map[int64]user.User),
		emails: make(map[string]int64),
		posts:  make(map[int64]post.Post),
	}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{s: s}
}

func (s *Store) Posts() *PostsRepo {
	return &PostsRepo{s: s}
}

func cloneUser(u user.User) user.User {
	if u.FullName != nil {
		v := *u.FullName
		u.FullName = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		u.LastLogin = &v
	}
	if u.LastLogout != nil {
		v := *u.LastLogout
		u.LastLogout = &v
	}
	return u
}

func sortedUsers(in []user.User) []user.User {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	return in
}
