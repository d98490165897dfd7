package redis

import (
	"context"
	"time"

	"lovealarm/internal/geo"
)

// SignalIndexInterface defines the interface for the signal geo index.
type SignalIndexInterface interface {
	Add(ctx context.Context, userID string, p geo.Point) error
	Search(ctx context.Context, p geo.Point, radiusMeters float64) ([]string, error)
	Remove(ctx context.Context, userID string) error
	Rebuild(ctx context.Context, signals map[string]geo.Point) error
	Invalidate(ctx context.Context) error
}

// AlarmGateInterface defines the interface for alarm de-duplication.
type AlarmGateInterface interface {
	Allow(ctx context.Context, fromID, toID string, ttl time.Duration) (bool, error)
}

// Ensure concrete types implement interfaces.
var (
	_ SignalIndexInterface = (*SignalIndex)(nil)
	_ AlarmGateInterface   = (*AlarmGate)(nil)
)
