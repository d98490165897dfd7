// Package matcher filters a snapshot of users down to the ones close enough
// to a target position. It is pure computation: callers supply the target
// and the candidate population, nothing is read from or written to a store.
package matcher

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"lovealarm/internal/geo"
)

var (
	// ErrInvalidRadius is returned when a radius is not a positive finite number.
	ErrInvalidRadius = errors.New("invalid radius")

	// ErrMissingTargetPosition is returned when the target has no position.
	ErrMissingTargetPosition = errors.New("target position not found")
)

// Candidate is one user considered for a match.
type Candidate struct {
	ID       string
	Position *geo.Point // nil when the user never shared a location
	Eligible bool
}

// Result is a candidate that fell inside the radius.
type Result struct {
	UserID   string
	Distance float64
	Unit     geo.Unit
}

// FindNearby returns the eligible candidates within radiusMeters of target,
// ordered by distance and then by ID.
//
// Candidates that are not eligible or have a missing or invalid position are
// skipped; they never fail the call.
func FindNearby(target *geo.Point, candidates []Candidate, radiusMeters float64) ([]Result, error) {
	if target == nil {
		return nil, ErrMissingTargetPosition
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := validateRadius(radiusMeters); err != nil {
		return nil, err
	}

	results := make([]Result, 0)
	for _, c := range candidates {
		if !c.Eligible || c.Position == nil {
			continue
		}

		distance, err := geo.Distance(*target, *c.Position)
		if err != nil {
			continue
		}

		if distance <= radiusMeters {
			results = append(results, Result{
				UserID:   c.ID,
				Distance: distance,
				Unit:     geo.Meters,
			})
		}
	}

	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	return results, nil
}

func validateRadius(radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return ErrInvalidRadius
	}
	return nil
}
