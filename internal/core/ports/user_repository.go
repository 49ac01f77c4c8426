// internal/core/ports/user_repository.go
package ports

import (
	"context"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
)

// UserRepository defines the persistence port for operator accounts.
// FindByUsername returns (nil, nil) when the username is unknown.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
