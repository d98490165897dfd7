package service

import (
	"context"
	"errors"
	"log"
	"time"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
	"lovealarm/internal/matcher"
	"lovealarm/internal/redis"
	"lovealarm/internal/repository"
)

// Redis GEO uses a slightly different Earth radius and geohash precision,
// so the prefilter searches a little wider than the matcher's radius.
const (
	prefilterSlackRatio  = 1.01
	prefilterSlackMeters = 5.0
)

// SignalService handles signal activation and nearby discovery.
type SignalService struct {
	userRepo    repository.UserRepository
	signalIndex redis.SignalIndexInterface
	matcher     *matcher.Matcher
	signalTTL   time.Duration
	now         func() time.Time
}

// NewSignalService creates a new SignalService. signalIndex may be nil, in
// which case every signaling user is a candidate.
func NewSignalService(
	userRepo repository.UserRepository,
	signalIndex redis.SignalIndexInterface,
	m *matcher.Matcher,
	signalTTL time.Duration,
) *SignalService {
	return &SignalService{
		userRepo:    userRepo,
		signalIndex: signalIndex,
		matcher:     m,
		signalTTL:   signalTTL,
		now:         time.Now,
	}
}

// ActivateSignalRequest contains the parameters for activating a signal.
// A fresh position is required.
type ActivateSignalRequest struct {
	UserID string
	Lat    float64
	Lng    float64
}

// Activate stores the fresh position and turns the user's signal on.
func (s *SignalService) Activate(ctx context.Context, req ActivateSignalRequest) (*domain.User, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}

	location, err := geo.NewPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLocation(ctx, req.UserID, location); err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if s.signalTTL > 0 {
		expiresAt = s.now().Add(s.signalTTL)
	}
	if err := s.userRepo.UpdateSignal(ctx, req.UserID, true, expiresAt); err != nil {
		return nil, err
	}

	indexSignal(ctx, s.signalIndex, req.UserID, location)

	return s.userRepo.GetByID(ctx, req.UserID)
}

// Deactivate turns the user's signal off.
func (s *SignalService) Deactivate(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}

	if err := s.userRepo.UpdateSignal(ctx, userID, false, time.Time{}); err != nil {
		return err
	}

	if s.signalIndex != nil {
		if err := s.signalIndex.Remove(ctx, userID); err != nil {
			log.Printf("failed to remove signal for user %s: %v", userID, err)
		}
	}

	return nil
}

// Nearby returns the other signaling users within the nearby radius of userID,
// closest first.
func (s *SignalService) Nearby(ctx context.Context, userID string) ([]matcher.Result, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Location == nil {
		return nil, matcher.ErrMissingTargetPosition
	}

	now := s.now()
	presences, err := s.signalingCandidates(ctx, *user.Location, now)
	if err != nil {
		return nil, err
	}

	candidates := make([]matcher.Candidate, 0, len(presences))
	for _, p := range presences {
		eligible := p.IsSignaling(now)
		if !eligible {
			s.evictStale(ctx, p.UserID)
		}
		candidates = append(candidates, matcher.Candidate{
			ID:       p.UserID,
			Position: p.Position,
			Eligible: eligible,
		})
	}

	return s.matcher.Nearby(user.ID, user.Location, candidates)
}

// signalingCandidates returns the presence snapshot to match against. The
// Redis index narrows the set when available; Postgres stays authoritative.
func (s *SignalService) signalingCandidates(ctx context.Context, target geo.Point, now time.Time) ([]*domain.Presence, error) {
	if s.signalIndex == nil {
		return s.userRepo.ListSignaling(ctx, now)
	}

	radius := s.matcher.Config().NearbyRadiusMeters*prefilterSlackRatio + prefilterSlackMeters
	ids, searchErr := s.signalIndex.Search(ctx, target, radius)
	if searchErr == nil {
		return s.userRepo.GetPresences(ctx, ids)
	}
	if !errors.Is(searchErr, redis.ErrOutsideIndexRange) {
		log.Printf("signal index search failed, falling back to database: %v", searchErr)
	}

	presences, err := s.userRepo.ListSignaling(ctx, now)
	if err != nil {
		return nil, err
	}
	if errors.Is(searchErr, redis.ErrIndexNotReady) {
		s.rebuildIndex(ctx, presences)
	}
	return presences, nil
}

// rebuildIndex repopulates the index from a full store read.
func (s *SignalService) rebuildIndex(ctx context.Context, presences []*domain.Presence) {
	signals := make(map[string]geo.Point, len(presences))
	for _, p := range presences {
		if p.Position != nil {
			signals[p.UserID] = *p.Position
		}
	}
	if err := s.signalIndex.Rebuild(ctx, signals); err != nil {
		log.Printf("failed to rebuild signal index: %v", err)
	}
}

// indexSignal adds a signal to the index. When the write fails the index is
// invalidated so searches read the store until it is rebuilt.
func indexSignal(ctx context.Context, index redis.SignalIndexInterface, userID string, p geo.Point) {
	if index == nil {
		return
	}
	err := index.Add(ctx, userID, p)
	if err == nil {
		return
	}
	log.Printf("failed to index signal for user %s: %v", userID, err)
	if err := index.Invalidate(ctx); err != nil {
		log.Printf("failed to invalidate signal index: %v", err)
	}
}

// evictStale drops an expired or switched-off signal from the index.
func (s *SignalService) evictStale(ctx context.Context, userID string) {
	if s.signalIndex == nil {
		return
	}
	if err := s.signalIndex.Remove(ctx, userID); err != nil {
		log.Printf("failed to evict stale signal for user %s: %v", userID, err)
	}
}
