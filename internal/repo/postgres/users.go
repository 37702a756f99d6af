package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/postboard/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const emailUniqueIndex = "users_email_key"

const userColumns = `id, email, password_hash, full_name, last_login, last_logout`

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs Observer) *UsersRepo {
	return &UsersRepo{pool: pool, obs: observerOrNoop(obs)}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.LastLogin,
		&u.LastLogout,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (u user.User, err error) {
	err = r.obs.ObserveDB("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.obs.ObserveDB("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string, fullName *string) (u user.User, err error) {
	err = r.obs.ObserveDB("users.create", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, full_name)
			VALUES ($1, $2, $3)
			RETURNING `+userColumns,
			email, passwordHash, fullName,
		))
		return err
	})

	if err != nil {
		// the unique index is the source of truth when two registrations race
		if code, constraint := pgErrorCode(err); code == codeUniqueViolation && constraint == emailUniqueIndex {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

// Update applies only the non-nil changes.
func (r *UsersRepo) Update(ctx context.Context, id int64, changes user.Changes) (u user.User, err error) {
	err = r.obs.ObserveDB("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET full_name = COALESCE($2, full_name),
				password_hash = COALESCE($3, password_hash)
			WHERE id = $1
			RETURNING `+userColumns,
			id, changes.FullName, changes.PasswordHash,
		))
		return err
	})
	return u, err
}

func (r *UsersRepo) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.stamp(ctx, "users.set_last_login", `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *UsersRepo) SetLastLogout(ctx context.Context, id int64, at time.Time) error {
	return r.stamp(ctx, "users.set_last_logout", `UPDATE users SET last_logout = $2 WHERE id = $1`, id, at)
}

func (r *UsersRepo) stamp(ctx context.Context, op, query string, id int64, at time.Time) error {
	return r.obs.ObserveDB(op, func() error {
		tag, err := r.pool.Exec(ctx, query, id, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

// Delete relies on ON DELETE CASCADE to remove the user's posts.
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	return r.obs.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.Filter(ctx, user.Filter{})
}

func (r *UsersRepo) Filter(ctx context.Context, f user.Filter) (out []user.User, err error) {
	query, args := buildUserFilter(f)

	err = r.obs.ObserveDB("users.filter", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildUserFilter turns the optional criteria into AND-ed predicates with
// positional arguments; user input never reaches the SQL text.
func buildUserFilter(f user.Filter) (string, []interface{}) {
	query := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.ID != nil {
		conds = append(conds, fmt.Sprintf("id = $%d", argsPosition))
		args = append(args, *f.ID)
		argsPosition++
	}

	if f.Email != nil {
		conds = append(conds, fmt.Sprintf("email ILIKE $%d", argsPosition))
		args = append(args, containsPattern(*f.Email))
		argsPosition++
	}

	if f.FullName != nil {
		conds = append(conds, fmt.Sprintf("full_name ILIKE $%d", argsPosition))
		args = append(args, containsPattern(*f.FullName))
		argsPosition++
	}

	if f.LoginAfter != nil {
		conds = append(conds, fmt.Sprintf("last_login >= $%d", argsPosition))
		args = append(args, *f.LoginAfter)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY id ASC"

	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern escapes LIKE wildcards so the substring matches literally.
func containsPattern(sub string) string {
	return "%" + likeEscaper.Replace(sub) + "%"
}
