package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
	"lovealarm/internal/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, username, name, surname, email, password_hash, COALESCE(profile_photo, ''),
	latitude, longitude, signaling, signal_expires_at, created_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username, name, surname, email, password_hash, profile_photo, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING created_at`

	lat, lng := nullPoint(user.Location)
	err := r.q.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Name, user.Surname, user.Email,
		user.PasswordHash, user.ProfilePhoto, lat, lng,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, email))
}

// GetAll retrieves all users.
func (r *UserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateLocation sets the user's current position.
func (r *UserRepository) UpdateLocation(ctx context.Context, id string, location geo.Point) error {
	query := `UPDATE users SET latitude = $1, longitude = $2 WHERE id = $3`
	result, err := r.q.ExecContext(ctx, query, location.Lat, location.Lng, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// UpdateSignal turns the user's signal on or off.
func (r *UserRepository) UpdateSignal(ctx context.Context, id string, signaling bool, expiresAt time.Time) error {
	query := `UPDATE users SET signaling = $1, signal_expires_at = $2 WHERE id = $3`

	var expires sql.NullTime
	if signaling && !expiresAt.IsZero() {
		expires = sql.NullTime{Time: expiresAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query, signaling, expires, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListSignaling returns every user whose signal is on and unexpired at now.
func (r *UserRepository) ListSignaling(ctx context.Context, now time.Time) ([]*domain.Presence, error) {
	query := `SELECT id, latitude, longitude, signaling, signal_expires_at FROM users
		WHERE signaling AND (signal_expires_at IS NULL OR signal_expires_at > $1)
		ORDER BY id`
	return r.queryPresences(ctx, query, now)
}

// GetPresences returns a snapshot for the given users in a single query.
func (r *UserRepository) GetPresences(ctx context.Context, ids []string) ([]*domain.Presence, error) {
	if len(ids) == 0 {
		return []*domain.Presence{}, nil
	}
	query := `SELECT id, latitude, longitude, signaling, signal_expires_at FROM users
		WHERE id = ANY($1) ORDER BY id`
	return r.queryPresences(ctx, query, pq.Array(ids))
}

func (r *UserRepository) queryPresences(ctx context.Context, query string, args ...any) ([]*domain.Presence, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presences := make([]*domain.Presence, 0)
	for rows.Next() {
		var (
			p        domain.Presence
			lat, lng sql.NullFloat64
			expires  sql.NullTime
		)
		if err := rows.Scan(&p.UserID, &lat, &lng, &p.Signaling, &expires); err != nil {
			return nil, err
		}
		p.Position = pointFromNull(lat, lng)
		if expires.Valid {
			p.SignalExpiresAt = expires.Time
		}
		presences = append(presences, &p)
	}
	return presences, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user     domain.User
		lat, lng sql.NullFloat64
		expires  sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.Surname,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePhoto,
		&lat,
		&lng,
		&user.Signaling,
		&expires,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	user.Location = pointFromNull(lat, lng)
	if expires.Valid {
		user.SignalExpiresAt = expires.Time
	}
	return &user, nil
}

// pointFromNull returns nil unless both columns are set.
func pointFromNull(lat, lng sql.NullFloat64) *geo.Point {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
}

func nullPoint(p *geo.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}

func expectAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
