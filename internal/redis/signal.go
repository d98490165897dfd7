package redis

import (
	"context"
	"errors"
	"math"

	"github.com/redis/go-redis/v9"

	"lovealarm/internal/geo"
)

const (
	signalIndexKey = "signals:locations"
	unindexedKey   = "signals:unindexed"
	readyKey       = "signals:ready"

	// maxIndexLatitude is the largest latitude Redis GEO commands accept.
	maxIndexLatitude = 85.05112878
)

var (
	// ErrIndexNotReady means the index may be missing signals, e.g. after a
	// Redis restart or a failed write. Callers must read the store instead.
	ErrIndexNotReady = errors.New("signal index not ready")

	// ErrOutsideIndexRange means the search centre is beyond the GEO latitude limit.
	ErrOutsideIndexRange = errors.New("position outside signal index range")
)

// Indexable reports whether p can be stored in a Redis GEO set.
func Indexable(p geo.Point) bool {
	return math.Abs(p.Lat) <= maxIndexLatitude
}

// SignalIndex keeps the positions of signaling users in a Redis GEO set.
// It is a coarse prefilter; callers re-check every hit against Postgres.
// Users too close to a pole for GEO are kept in a plain set and returned
// by every search.
type SignalIndex struct {
	client *redis.Client
}

// NewSignalIndex creates a new SignalIndex.
func NewSignalIndex(client *redis.Client) *SignalIndex {
	return &SignalIndex{client: client}
}

// Add stores or moves a user's signal.
func (s *SignalIndex) Add(ctx context.Context, userID string, p geo.Point) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueAdd(ctx, pipe, userID, p)
		return nil
	})
	return err
}

// Search returns the IDs within radiusMeters of p, closest first, followed by
// the unindexed users. It fails with ErrIndexNotReady until Rebuild has run.
func (s *SignalIndex) Search(ctx context.Context, p geo.Point, radiusMeters float64) ([]string, error) {
	if !Indexable(p) {
		return nil, ErrOutsideIndexRange
	}

	pipe := s.client.Pipeline()
	ready := pipe.Exists(ctx, readyKey)
	nearby := pipe.GeoRadius(ctx, signalIndexKey, p.Lng, p.Lat, &redis.GeoRadiusQuery{
		Radius: radiusMeters,
		Unit:   "m",
		Sort:   "ASC",
	})
	unindexed := pipe.SMembers(ctx, unindexedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	if ready.Val() == 0 {
		return nil, ErrIndexNotReady
	}

	locations := nearby.Val()
	extra := unindexed.Val()
	ids := make([]string, 0, len(locations)+len(extra))
	for _, l := range locations {
		ids = append(ids, l.Name)
	}
	ids = append(ids, extra...)
	return ids, nil
}

// Remove drops a user from the index.
func (s *SignalIndex) Remove(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, signalIndexKey, userID)
		pipe.SRem(ctx, unindexedKey, userID)
		return nil
	})
	return err
}

// Rebuild upserts the given signals and marks the index ready. Entries not in
// signals are left in place; searches re-check them anyway.
func (s *SignalIndex) Rebuild(ctx context.Context, signals map[string]geo.Point) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for userID, p := range signals {
			queueAdd(ctx, pipe, userID, p)
		}
		pipe.Set(ctx, readyKey, "1", 0)
		return nil
	})
	return err
}

// Invalidate marks the index as possibly incomplete.
func (s *SignalIndex) Invalidate(ctx context.Context) error {
	return s.client.Del(ctx, readyKey).Err()
}

func queueAdd(ctx context.Context, pipe redis.Pipeliner, userID string, p geo.Point) {
	if !Indexable(p) {
		pipe.ZRem(ctx, signalIndexKey, userID)
		pipe.SAdd(ctx, unindexedKey, userID)
		return
	}
	pipe.SRem(ctx, unindexedKey, userID)
	pipe.GeoAdd(ctx, signalIndexKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	})
}
