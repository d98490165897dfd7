package repository

import (
	"context"

	"lovealarm/internal/domain"
)

// InteractionRepository defines the persistence operations for interest edges.
type InteractionRepository interface {
	// Record inserts the edge unless the same (user, target, kind) already exists.
	// created is false for a duplicate; that is not an error.
	Record(ctx context.Context, interaction *domain.Interaction) (created bool, err error)

	// ListLikers returns the distinct users with an edge toward targetID,
	// ordered by ID.
	ListLikers(ctx context.Context, targetID string) ([]string, error)
}
