package service

import (
	"context"
	"time"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
)

type PostService struct {
	posts PostStore
	now   func() time.Time
}

func NewPostService(posts PostStore) *PostService {
	return &PostService{posts: posts, now: utcNow}
}

// Create stores a post owned by the authenticated user with created_at == updated_at.
func (s *PostService) Create(ctx context.Context, owner user.User, text string) (post.Post, error) {
	if err := post.ValidateText(text); err != nil {
		return post.Post{}, err
	}

	return s.posts.Create(ctx, owner.ID, text, s.now())
}

// ListByUser is a public read; a user without posts yields an empty slice.
func (s *PostService) ListByUser(ctx context.Context, userID int64) ([]post.Post, error) {
	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return posts, nil
}

// Update reports NotFound or Forbidden ahead of an invalid text.
func (s *PostService) Update(ctx context.Context, current user.User, postID int64, text string) (post.Post, error) {
	p, err := s.owned(ctx, current, postID)
	if err != nil {
		return post.Post{}, err
	}

	if err := post.ValidateText(text); err != nil {
		return post.Post{}, err
	}

	at := s.now()
	// updated_at only moves forward, even if two edits land in the same tick
	if !at.After(p.UpdatedAt) {
		at = p.UpdatedAt.Add(time.Microsecond)
	}

	return s.posts.UpdateText(ctx, p.ID, text, at)
}

func (s *PostService) Delete(ctx context.Context, current user.User, postID int64) error {
	p, err := s.owned(ctx, current, postID)
	if err != nil {
		return err
	}

	_, err = s.posts.Delete(ctx, p.ID)
	return err
}

// owned loads the post and checks ownership on every call; nothing is cached.
func (s *PostService) owned(ctx context.Context, current user.User, postID int64) (post.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}

	if p.UserID != current.ID {
		return post.Post{}, post.ErrNotOwner
	}

	return p, nil
}
