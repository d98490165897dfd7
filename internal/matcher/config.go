package matcher

import "lovealarm/internal/geo"

// Config holds the matching radii. Both values are in meters.
type Config struct {
	NearbyRadiusMeters float64 // Active-signal discovery
	LoveRadiusMeters   float64 // Mutual-interest detection
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		NearbyRadiusMeters: 1000,
		LoveRadiusMeters:   100,
	}
}

// Matcher applies FindNearby with configured radii.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. Both radii must be positive.
func New(cfg Config) (*Matcher, error) {
	if err := validateRadius(cfg.NearbyRadiusMeters); err != nil {
		return nil, err
	}
	if err := validateRadius(cfg.LoveRadiusMeters); err != nil {
		return nil, err
	}
	return &Matcher{cfg: cfg}, nil
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Nearby returns the signaling users around target, excluding selfID.
func (m *Matcher) Nearby(selfID string, target *geo.Point, candidates []Candidate) ([]Result, error) {
	others := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == selfID {
			continue
		}
		others = append(others, c)
	}
	return FindNearby(target, others, m.cfg.NearbyRadiusMeters)
}

// LoveResult is the outcome of mutual-interest detection. Distances are not
// exposed.
type LoveResult struct {
	Count   int
	Matched []string
}

// DetectLove counts the likers that are inside the love radius of target.
// A liker listed more than once is counted once; the first usable entry for
// an ID wins, so an entry without a valid position never shadows a later one.
func (m *Matcher) DetectLove(target *geo.Point, likers []Candidate) (*LoveResult, error) {
	seen := make(map[string]struct{}, len(likers))
	distinct := make([]Candidate, 0, len(likers))
	for _, c := range likers {
		if !c.Eligible || c.Position == nil || c.Position.Validate() != nil {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		distinct = append(distinct, c)
	}

	results, err := FindNearby(target, distinct, m.cfg.LoveRadiusMeters)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(results))
	for _, r := range results {
		matched = append(matched, r.UserID)
	}

	return &LoveResult{
		Count:   len(matched),
		Matched: matched,
	}, nil
}

// WithinLoveRadius reports whether b is inside the love radius of a.
func (m *Matcher) WithinLoveRadius(a, b geo.Point) (bool, error) {
	distance, err := geo.Distance(a, b)
	if err != nil {
		return false, err
	}
	return distance <= m.cfg.LoveRadiusMeters, nil
}
