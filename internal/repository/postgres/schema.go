package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		username          VARCHAR(50) NOT NULL,
		name              VARCHAR(50) NOT NULL,
		surname           VARCHAR(50) NOT NULL,
		email             VARCHAR(255) UNIQUE NOT NULL,
		password_hash     VARCHAR(255) NOT NULL,
		profile_photo     VARCHAR(255),
		latitude          DOUBLE PRECISION,
		longitude         DOUBLE PRECISION,
		signaling         BOOLEAN NOT NULL DEFAULT FALSE,
		signal_expires_at TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK ((latitude IS NULL) = (longitude IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_signaling ON users (signaling) WHERE signaling`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		target_id        TEXT NOT NULL REFERENCES users(id),
		interaction_type VARCHAR(50) NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, target_id, interaction_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_target ON interactions (target_id)`,
}

// Migrate creates the tables if they do not exist. All statements run in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(q Querier) error {
		for _, stmt := range schema {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
