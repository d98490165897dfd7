package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"lovealarm/internal/domain"
	"lovealarm/internal/matcher"
	"lovealarm/internal/repository"
)

// AlarmNotifier delivers love alarms to a target user.
type AlarmNotifier interface {
	NotifyLoveAlarm(ctx context.Context, fromID string, report *LoveReport) error
}

// Ensure NotificationService implements AlarmNotifier.
var _ AlarmNotifier = (*NotificationService)(nil)

// LoveService records interactions and detects nearby admirers.
type LoveService struct {
	userRepo        repository.UserRepository
	interactionRepo repository.InteractionRepository
	matcher         *matcher.Matcher
	notifier        AlarmNotifier
}

// NewLoveService creates a new LoveService. notifier may be nil.
func NewLoveService(
	userRepo repository.UserRepository,
	interactionRepo repository.InteractionRepository,
	m *matcher.Matcher,
	notifier AlarmNotifier,
) *LoveService {
	return &LoveService{
		userRepo:        userRepo,
		interactionRepo: interactionRepo,
		matcher:         m,
		notifier:        notifier,
	}
}

// RecordInteractionRequest contains the parameters for recording an interaction.
type RecordInteractionRequest struct {
	UserID   string
	TargetID string
	Type     string
}

// RecordInteractionResult contains the outcome of recording an interaction.
type RecordInteractionResult struct {
	Interaction *domain.Interaction
	Created     bool // false when the same edge already existed
}

// LoveReport is the result of a love check for one user.
type LoveReport struct {
	UserID    string
	LoveCount int
	Matched   []string
}

// RecordInteraction appends an interest edge. Recording the same edge twice
// is a no-op. A new edge from someone inside the love radius rings the
// target's alarm.
func (s *LoveService) RecordInteraction(ctx context.Context, req RecordInteractionRequest) (*RecordInteractionResult, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if req.TargetID == "" {
		return nil, ErrInvalidTargetID
	}
	if req.UserID == req.TargetID {
		return nil, ErrSelfInteraction
	}

	liker, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	interaction := &domain.Interaction{
		ID:        uuid.New().String(),
		UserID:    liker.ID,
		TargetID:  target.ID,
		Kind:      domain.ParseInteractionKind(req.Type),
		CreatedAt: time.Now(),
	}

	created, err := s.interactionRepo.Record(ctx, interaction)
	if err != nil {
		return nil, err
	}

	if created {
		s.ringIfNear(ctx, liker, target)
	}

	return &RecordInteractionResult{
		Interaction: interaction,
		Created:     created,
	}, nil
}

// CheckLove counts the users who showed interest in userID and are inside
// the love radius right now.
func (s *LoveService) CheckLove(ctx context.Context, userID string) (*LoveReport, error) {
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

	likerIDs, err := s.interactionRepo.ListLikers(ctx, userID)
	if err != nil {
		return nil, err
	}

	presences, err := s.userRepo.GetPresences(ctx, likerIDs)
	if err != nil {
		return nil, err
	}

	likers := make([]matcher.Candidate, 0, len(presences))
	for _, p := range presences {
		likers = append(likers, matcher.Candidate{
			ID:       p.UserID,
			Position: p.Position,
			Eligible: true,
		})
	}

	result, err := s.matcher.DetectLove(user.Location, likers)
	if err != nil {
		return nil, err
	}

	return &LoveReport{
		UserID:    userID,
		LoveCount: result.Count,
		Matched:   result.Matched,
	}, nil
}

// ringIfNear notifies target when liker is inside the love radius.
// Failures are logged; the interaction is already recorded.
func (s *LoveService) ringIfNear(ctx context.Context, liker, target *domain.User) {
	if s.notifier == nil || liker.Location == nil || target.Location == nil {
		return
	}

	near, err := s.matcher.WithinLoveRadius(*target.Location, *liker.Location)
	if err != nil || !near {
		return
	}

	report, err := s.CheckLove(ctx, target.ID)
	if err != nil {
		log.Printf("failed to check love for user %s: %v", target.ID, err)
		return
	}

	if err := s.notifier.NotifyLoveAlarm(ctx, liker.ID, report); err != nil {
		log.Printf("failed to ring love alarm for user %s: %v", target.ID, err)
	}
}
