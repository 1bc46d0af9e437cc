package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const (
	userColumns     = "id, name, email, created_at"
	defaultUserList = 100
)

type UserRepo struct {
	pool *pgxpool.Pool
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// validID reports whether id fits the SERIAL key range.
func validID(id int64) bool {
	return id > 0 && id <= math.MaxInt32
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	return u, err
}

func (r *UserRepo) Create(ctx context.Context, name, email string) (*domain.User, error) {
	if err := domain.ValidateUser(name, email); err != nil {
		return nil, err
	}

	sql, args, err := buildInsert("users",
		[]string{"name", "email"},
		[]any{strings.TrimSpace(name), strings.TrimSpace(email)},
		"id", "name", "email", "created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build user insert: %w", err)
	}

	user, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapUserError("create user", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.StoreUnavailable("get user", err)
	}
	return &user, nil
}

// List returns users in id order, at most limit (100 when limit <= 0).
func (r *UserRepo) List(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultUserList
	}

	sql, args, err := buildSelect("SELECT "+userColumns+" FROM users", listOptions{
		OrderBy: []orderTerm{{Column: "id"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build user list: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.StoreUnavailable("list users", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, domain.StoreUnavailable("list users", err)
	}
	return users, nil
}

// Delete removes the user; their messages go with them through the cascading foreign key.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return domain.StoreUnavailable("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) EnsureDefault(ctx context.Context) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users (name, email)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM users)
		ON CONFLICT (email) DO NOTHING`,
		domain.DefaultUserName, domain.DefaultUserEmail,
	)
	if err != nil {
		return false, domain.StoreUnavailable("seed default user", err)
	}
	return tag.RowsAffected() == 1, nil
}
