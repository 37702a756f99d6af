package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/postboard/internal/domain/post"
)

// PostStore mirrors service.PostStore; redeclared here to keep the cache
// package free of service imports.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (post.Post, error)
	Create(ctx context.Context, userID int64, text string, at time.Time) (post.Post, error)
	UpdateText(ctx context.Context, id int64, text string, at time.Time) (post.Post, error)
	Delete(ctx context.Context, id int64) (post.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]post.Post, error)
}

// PostsRepo is a cache-aside decorator for the public per-user post listing.
// Listings are keyed by a per-user version that every write bumps. A reader
// picks the version before it queries the store, so a fill racing a write
// lands under a key nobody reads again. Cache failures only cost a round
// trip to the store.
type PostsRepo struct {
	next  PostStore
	store Store
	ttl   time.Duration
	log   *slog.Logger
	obs   Observer
}

// Observer receives one result (hit, miss or error) per lookup.
type Observer interface {
	ObserveCache(name, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveCache(string, string) {}

func NewPostsRepo(next PostStore, store Store, ttl time.Duration, log *slog.Logger) *PostsRepo {
	if log == nil {
		log = slog.Default()
	}
	return &PostsRepo{next: next, store: store, ttl: ttl, log: log, obs: noopObserver{}}
}

// WithObserver attaches lookup metrics.
func (r *PostsRepo) WithObserver(obs Observer) *PostsRepo {
	if obs != nil {
		r.obs = obs
	}
	return r
}

// PostsByUserKey names the listing of userID at version ver.
func PostsByUserKey(userID, ver int64) string {
	return "posts:user:v1:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(ver, 10)
}

func PostsVersionKey(userID int64) string {
	return "posts:user:ver:" + strconv.FormatInt(userID, 10)
}

func (r *PostsRepo) GetByID(ctx context.Context, id int64) (post.Post, error) {
	return r.next.GetByID(ctx, id)
}

func (r *PostsRepo) Create(ctx context.Context, userID int64, text string, at time.Time) (post.Post, error) {
	p, err := r.next.Create(ctx, userID, text, at)
	if err != nil {
		return post.Post{}, err
	}
	r.InvalidateUser(ctx, p.UserID)
	return p, nil
}

func (r *PostsRepo) UpdateText(ctx context.Context, id int64, text string, at time.Time) (post.Post, error) {
	p, err := r.next.UpdateText(ctx, id, text, at)
	if err != nil {
		return post.Post{}, err
	}
	r.InvalidateUser(ctx, p.UserID)
	return p, nil
}

func (r *PostsRepo) Delete(ctx context.Context, id int64) (post.Post, error) {
	p, err := r.next.Delete(ctx, id)
	if err != nil {
		return post.Post{}, err
	}
	r.InvalidateUser(ctx, p.UserID)
	return p, nil
}

func (r *PostsRepo) ListByUser(ctx context.Context, userID int64) ([]post.Post, error) {
	ver, err := r.store.Version(ctx, PostsVersionKey(userID))
	if err != nil {
		r.obs.ObserveCache("posts_by_user", "error")
		r.log.WarnContext(ctx, "posts cache version read failed", "user_id", userID, "err", err)
		return r.next.ListByUser(ctx, userID)
	}
	key := PostsByUserKey(userID, ver)

	b, err := r.store.Get(ctx, key)
	if err == nil {
		var cached []post.Post
		if err := json.Unmarshal(b, &cached); err == nil {
			r.obs.ObserveCache("posts_by_user", "hit")
			return cached, nil
		}
		r.obs.ObserveCache("posts_by_user", "error")
		r.log.WarnContext(ctx, "posts cache decode failed", "key", key)
	} else if errors.Is(err, ErrMiss) {
		r.obs.ObserveCache("posts_by_user", "miss")
	} else {
		r.obs.ObserveCache("posts_by_user", "error")
		r.log.WarnContext(ctx, "posts cache read failed", "key", key, "err", err)
	}

	posts, err := r.next.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	b, err = json.Marshal(posts)
	if err == nil {
		err = r.store.Set(ctx, key, b, r.ttl)
	}
	if err != nil {
		r.log.WarnContext(ctx, "posts cache write failed", "key", key, "err", err)
	}

	return posts, nil
}

// InvalidateUser retires every cached listing of userID by bumping its version.
// If the bump fails the current entry lives until its TTL.
func (r *PostsRepo) InvalidateUser(ctx context.Context, userID int64) {
	if _, err := r.store.Bump(ctx, PostsVersionKey(userID)); err != nil {
		r.log.WarnContext(ctx, "posts cache invalidation failed", "user_id", userID, "err", err)
	}
}
