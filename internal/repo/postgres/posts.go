package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `id, user_id, text, created_at, updated_at`

type PostsRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewPostsRepo(pool *pgxpool.Pool, obs Observer) *PostsRepo {
	return &PostsRepo{pool: pool, obs: observerOrNoop(obs)}
}

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post

	err := row.Scan(&p.ID, &p.UserID, &p.Text, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id int64) (p post.Post, err error) {
	err = r.obs.ObserveDB("posts.get_by_id", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
		return err
	})
	return p, err
}

func (r *PostsRepo) Create(ctx context.Context, userID int64, text string, at time.Time) (p post.Post, err error) {
	err = r.obs.ObserveDB("posts.create", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`INSERT INTO posts (user_id, text, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING `+postColumns,
			userID, text, at,
		))
		return err
	})

	if err != nil {
		// owner removed between authentication and insert
		if code, _ := pgErrorCode(err); code == codeForeignKeyViolation {
			return post.Post{}, user.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) UpdateText(ctx context.Context, id int64, text string, at time.Time) (p post.Post, err error) {
	err = r.obs.ObserveDB("posts.update", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts
			SET text = $2,
				updated_at = $3
			WHERE id = $1
			RETURNING `+postColumns,
			id, text, at,
		))
		return err
	})
	return p, err
}

func (r *PostsRepo) Delete(ctx context.Context, id int64) (p post.Post, err error) {
	err = r.obs.ObserveDB("posts.delete", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx, `DELETE FROM posts WHERE id = $1 RETURNING `+postColumns, id))
		return err
	})
	return p, err
}

func (r *PostsRepo) ListByUser(ctx context.Context, userID int64) (out []post.Post, err error) {
	err = r.obs.ObserveDB("posts.list_by_user", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY id ASC`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]post.Post, 0)
		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
