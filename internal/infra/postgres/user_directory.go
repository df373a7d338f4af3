package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-battle-service/internal/domain"
)

// UserDirectory resolves bearer tokens against the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	var user domain.Identity
	err := d.pool.QueryRow(ctx, `SELECT id, name, rating FROM users WHERE token=$1`, token).
		Scan(&user.ID, &user.Name, &user.Rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func (d *UserDirectory) UpdateRating(ctx context.Context, userID int64, rating int) error {
	tag, err := d.pool.Exec(ctx, `UPDATE users SET rating=$2 WHERE id=$1`, userID, rating)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
