// internal/adapters/db/user_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// userRepository implements ports.UserRepository
type userRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *Database, logger *slog.Logger) ports.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "user")),
	}
}

// Save creates a new user account
func (r *userRepository) Save(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	r.logger.InfoContext(ctx, "user created",
		slog.Int64("id", u.ID),
		slog.String("username", u.Username))

	return nil
}

// FindByUsername retrieves a user by username, returning (nil, nil) when absent
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return u, nil
}
