package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts or refreshes the account keyed by (provider, provider_id).
func (db *DB) UpsertUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	err := db.q(ctx).QueryRow(ctx,
		`INSERT INTO users (id, provider, provider_id, name, email, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (provider, provider_id) DO UPDATE SET
		     name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     image = EXCLUDED.image,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		xid.New().String(), user.Provider, user.ProviderID, user.Name, user.Email, user.Image, now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting user (%s:%s): %w", user.Provider, user.ProviderID, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.q(ctx).QueryRow(ctx,
		`SELECT id, provider, provider_id, name, email, image, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Provider, &u.ProviderID, &u.Name, &u.Email, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return &u, nil
}

func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	opts = opts.Normalize()

	query, args, err := psql.
		Select("id", "name", "email", "image", "created_at").
		From("users").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: building member query: %w", err)
	}

	rows, err := db.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating users: %w", err)
	}
	return users, nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	tag, err := db.q(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
