package repository

import (
	"context"
	"time"

	"task-tracker/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create inserts u. Unique violations surface as domain.ErrEmailTaken or domain.ErrUsernameTaken.
	Create(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetActive flips the active flag and reports whether a row was updated.
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}
