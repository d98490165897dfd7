package repository

import (
	"context"
	"time"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
)

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// Create adds a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetAll retrieves all users.
	GetAll(ctx context.Context) ([]*domain.User, error)

	// UpdateLocation sets the user's current position.
	UpdateLocation(ctx context.Context, id string, location geo.Point) error

	// UpdateSignal turns the user's signal on or off.
	// A zero expiresAt means the signal does not expire.
	UpdateSignal(ctx context.Context, id string, signaling bool, expiresAt time.Time) error

	// ListSignaling returns every user whose signal is on and unexpired at now.
	ListSignaling(ctx context.Context, now time.Time) ([]*domain.Presence, error)

	// GetPresences returns a snapshot for the given users. Unknown IDs are omitted.
	GetPresences(ctx context.Context, ids []string) ([]*domain.Presence, error)
}
