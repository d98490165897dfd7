package domain

import (
	"time"

	"lovealarm/internal/geo"
)

// User represents a registered user.
type User struct {
	ID              string
	Username        string
	Name            string
	Surname         string
	Email           string
	PasswordHash    string
	ProfilePhoto    string
	Location        *geo.Point // nil until the user shares a location
	Signaling       bool
	SignalExpiresAt time.Time // Zero means the signal never expires
	CreatedAt       time.Time
}

// Presence is a point-in-time view of a user's matchability.
type Presence struct {
	UserID          string
	Position        *geo.Point
	Signaling       bool
	SignalExpiresAt time.Time
}

// IsSignaling reports whether the signal is on and not expired at now.
func (p *Presence) IsSignaling(now time.Time) bool {
	if !p.Signaling {
		return false
	}
	return p.SignalExpiresAt.IsZero() || now.Before(p.SignalExpiresAt)
}

// Presence returns the user's presence snapshot.
func (u *User) Presence() *Presence {
	return &Presence{
		UserID:          u.ID,
		Position:        u.Location,
		Signaling:       u.Signaling,
		SignalExpiresAt: u.SignalExpiresAt,
	}
}
