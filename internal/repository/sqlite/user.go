package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts a new account or refreshes the profile fields of the
// existing one with the same (provider, provider_id).
//
// ON CONFLICT ... DO UPDATE keeps the original id and created_at, so a user who
// signs in again keeps their polls and votes. RETURNING hands back whichever
// id won, which also covers two first sign-ins racing each other. The row is
// read back afterwards so timestamps come out of a declared DATETIME column.
func (db *DB) UpsertUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	err := db.q(ctx).QueryRowContext(ctx,
		`INSERT INTO users (id, provider, provider_id, name, email, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_id) DO UPDATE SET
		     name = excluded.name,
		     email = excluded.email,
		     image = excluded.image,
		     updated_at = excluded.updated_at
		 RETURNING id`,
		xid.New().String(),
		user.Provider,
		user.ProviderID,
		user.Name,
		user.Email,
		user.Image,
		now,
		now,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (%s:%s): %w", user.Provider, user.ProviderID, err)
	}

	stored, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored

	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT id, provider, provider_id, name, email, image, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// ListUsers returns one page of members, newest first.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	opts = opts.Normalize()

	query, args, err := sq.
		Select("id", "name", "email", "image", "created_at").
		From("users").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building member query: %w", err)
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// DeleteUser removes the account row. Polls and votes that still reference
// it are removed by ON DELETE CASCADE; callers that care about vote counters
// retract the votes first.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
