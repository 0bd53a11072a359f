package repository

import (
	"context"

	"github.com/kodacci/o-monitor-rest/internal/user/domain"
)

// Repository defines persistence for users. Soft-deleted users are invisible to every method.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	// GetTokenID returns the stored session identifier, or "" when unset or the user is missing.
	GetTokenID(ctx context.Context, id int64) (string, error)
	// SetTokenID overwrites the stored session identifier in a single statement.
	SetTokenID(ctx context.Context, id int64, tokenID string) error
	List(ctx context.Context) ([]*domain.User, error)
	// Create persists u and assigns u.ID.
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	// SoftDelete marks the user deleted and returns the number of affected rows (0 or 1).
	SoftDelete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}
