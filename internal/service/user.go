package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
	"lovealarm/internal/redis"
	"lovealarm/internal/repository"
)

const maxPasswordBytes = 72

// UserService handles user registration and location updates.
type UserService struct {
	userRepo    repository.UserRepository
	signalIndex redis.SignalIndexInterface
	now         func() time.Time
}

// NewUserService creates a new UserService. signalIndex may be nil.
func NewUserService(userRepo repository.UserRepository, signalIndex redis.SignalIndexInterface) *UserService {
	return &UserService{
		userRepo:    userRepo,
		signalIndex: signalIndex,
		now:         time.Now,
	}
}

// RegisterRequest contains the parameters for registering a user.
type RegisterRequest struct {
	Username     string
	Name         string
	Surname      string
	Email        string
	Password     string
	ProfilePhoto string
	Lat          *float64 // Optional, must be set together with Lng
	Lng          *float64
}

// Register creates a new user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Name == "" || req.Surname == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingRequiredField
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, ErrInvalidPassword
	}

	location, err := optionalPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Name:         req.Name,
		Surname:      req.Surname,
		Email:        req.Email,
		PasswordHash: string(hash),
		ProfilePhoto: req.ProfilePhoto,
		Location:     location,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.userRepo.GetByID(ctx, userID)
}

// GetAll retrieves all users.
func (s *UserService) GetAll(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.GetAll(ctx)
}

// UpdateLocationRequest contains the parameters for updating a user's location.
type UpdateLocationRequest struct {
	UserID string
	Lat    float64
	Lng    float64
}

// UpdateLocation stores a new position. An active signal follows the user.
func (s *UserService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*domain.User, error) {
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

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if user.Presence().IsSignaling(s.now()) {
		indexSignal(ctx, s.signalIndex, user.ID, location)
	}

	return user, nil
}

func optionalPoint(lat, lng *float64) (*geo.Point, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, ErrIncompleteLocation
	}
	p, err := geo.NewPoint(*lat, *lng)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
