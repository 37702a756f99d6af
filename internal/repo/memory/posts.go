package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
)

type PostsRepo struct {
	s *Store
}

func (r *PostsRepo) GetByID(_ context.Context, id int64) (post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	return p, nil
}

func (r *PostsRepo) Create(_ context.Context, userID int64, text string, at time.Time) (post.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// foreign key: the owner must exist
	if _, ok := r.s.users[userID]; !ok {
		return post.Post{}, user.ErrNotFound
	}

	r.s.nextPostID++
	p := post.Post{
		ID:        r.s.nextPostID,
		UserID:    userID,
		Text:      text,
		CreatedAt: at,
		UpdatedAt: at,
	}
	r.s.posts[p.ID] = p

	return p, nil
}

func (r *PostsRepo) UpdateText(_ context.Context, id int64, text string, at time.Time) (post.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}

	p.Text = text
	p.UpdatedAt = at
	r.s.posts[id] = p

	return p, nil
}

func (r *PostsRepo) Delete(_ context.Context, id int64) (post.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	delete(r.s.posts, id)

	return p, nil
}

func (r *PostsRepo) ListByUser(_ context.Context, userID int64) ([]post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]post.Post, 0)
	for _, p := range r.s.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
