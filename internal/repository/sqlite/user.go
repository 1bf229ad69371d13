package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/auth"
	"github.com/nayeem/cloudbook/internal/model"
	"github.com/nayeem/cloudbook/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user row. The caller is expected to have
// normalized the email to lowercase; the UNIQUE constraint is the final
// arbiter, and a violation maps to apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already in use")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetUserByID retrieves a user by internal id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by (lowercase) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user %v: %w", arg, err)
	}

	return &u, nil
}

// EnsureByEmail creates a user with a placeholder password credential on
// first sight of the email and returns the existing row unchanged on every
// later call.
//
// ON CONFLICT DO NOTHING plus a re-read gives the at-most-one-row
// guarantee without a transaction: whichever concurrent caller wins the
// insert, everyone reads back the same row.
func (db *DB) EnsureByEmail(ctx context.Context, name, email string) (*model.User, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		name,
		email,
		auth.PlaceholderPasswordHash,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ensuring user %s: %w", email, err)
	}

	user, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading back ensured user %s: %w", email, err)
	}

	return user, nil
}

// isUniqueViolation detects a UNIQUE constraint failure. The modernc
// driver surfaces these as plain errors, so string matching is the
// portable check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
