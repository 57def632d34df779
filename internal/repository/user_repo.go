package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Fullname, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByLogin looks a user up by username or email. Blank arguments never match.
func (r *UserRepository) FindByLogin(ctx context.Context, username string, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1`, username, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by login: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.Fullname, u.Avatar, u.CoverImage, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, userID string, token string) error {
	return r.execOnUser(ctx, "set refresh token",
		`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, token, time.Now().UTC())
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.execOnUser(ctx, "clear refresh token",
		`UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC())
}

// SwapRefreshToken stores next only while the stored token still equals
// presented. It reports whether the swap happened.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, userID string, presented string, next string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $3, updated_at = $4
		 WHERE id = $1 AND refresh_token = $2`,
		userID, presented, next, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	return r.execOnUser(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, passwordHash, time.Now().UTC())
}

// UpdateDetails overwrites email and fullname; blank values keep the stored ones.
func (r *UserRepository) UpdateDetails(ctx context.Context, userID string, email string, fullname string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET
		   email = COALESCE(NULLIF($2, ''), email),
		   fullname = COALESCE(NULLIF($3, ''), fullname),
		   updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns, userID, email, fullname, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return model.User{}, fmt.Errorf("update user details: %w", model.ErrUserAlreadyExists)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user details: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID string, url string) error {
	return r.execOnUser(ctx, "update avatar",
		`UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1`,
		userID, url, time.Now().UTC())
}

func (r *UserRepository) UpdateCoverImage(ctx context.Context, userID string, url string) error {
	return r.execOnUser(ctx, "update cover image",
		`UPDATE users SET cover_image = $2, updated_at = $3 WHERE id = $1`,
		userID, url, time.Now().UTC())
}

func (r *UserRepository) execOnUser(ctx context.Context, op string, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
