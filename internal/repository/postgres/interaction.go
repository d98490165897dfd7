package postgres

import (
	"context"
	"database/sql"

	"lovealarm/internal/domain"
)

// InteractionRepository implements repository.InteractionRepository using PostgreSQL.
type InteractionRepository struct {
	q Querier
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{q: db}
}

// Record inserts the edge; a duplicate (user, target, kind) is ignored.
func (r *InteractionRepository) Record(ctx context.Context, interaction *domain.Interaction) (bool, error) {
	query := `INSERT INTO interactions (id, user_id, target_id, interaction_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, target_id, interaction_type) DO NOTHING`

	result, err := r.q.ExecContext(ctx, query,
		interaction.ID, interaction.UserID, interaction.TargetID, interaction.Kind)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// ListLikers returns the distinct users with an edge toward targetID.
func (r *InteractionRepository) ListLikers(ctx context.Context, targetID string) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM interactions WHERE target_id = $1 ORDER BY user_id`
	rows, err := r.q.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likers := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		likers = append(likers, id)
	}
	return likers, rows.Err()
}
