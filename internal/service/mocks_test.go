package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
	"lovealarm/internal/redis"
	"lovealarm/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is an in-memory UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Counters for verification
	ListSignalingCallCount int32
	GetPresencesCallCount  int32

	// Error injection
	CreateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copy := *u
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockUserRepository) UpdateLocation(ctx context.Context, id string, location geo.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Location = &location
	return nil
}

func (m *MockUserRepository) UpdateSignal(ctx context.Context, id string, signaling bool, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Signaling = signaling
	user.SignalExpiresAt = time.Time{}
	if signaling {
		user.SignalExpiresAt = expiresAt
	}
	return nil
}

func (m *MockUserRepository) ListSignaling(ctx context.Context, now time.Time) ([]*domain.Presence, error) {
	atomic.AddInt32(&m.ListSignalingCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Presence
	for _, u := range m.users {
		if p := u.Presence(); p.IsSignaling(now) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockUserRepository) GetPresences(ctx context.Context, ids []string) ([]*domain.Presence, error) {
	atomic.AddInt32(&m.GetPresencesCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Presence, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, u.Presence())
		}
	}
	return result, nil
}

// GetUser returns the stored user for assertions.
func (m *MockUserRepository) GetUser(id string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

// ──────────────────────────────────────────────
// MOCK INTERACTION REPOSITORY
// ──────────────────────────────────────────────

type interactionKey struct {
	from, to string
	kind     domain.InteractionKind
}

// MockInteractionRepository is an in-memory InteractionRepository with
// insert-if-absent semantics.
type MockInteractionRepository struct {
	mu           sync.Mutex
	interactions map[interactionKey]*domain.Interaction

	RecordCallCount int32
	RecordError     error
}

func NewMockInteractionRepository() *MockInteractionRepository {
	return &MockInteractionRepository{interactions: make(map[interactionKey]*domain.Interaction)}
}

func (m *MockInteractionRepository) Record(ctx context.Context, interaction *domain.Interaction) (bool, error) {
	atomic.AddInt32(&m.RecordCallCount, 1)
	if m.RecordError != nil {
		return false, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := interactionKey{interaction.UserID, interaction.TargetID, interaction.Kind}
	if _, exists := m.interactions[key]; exists {
		return false, nil
	}
	m.interactions[key] = interaction
	return true, nil
}

func (m *MockInteractionRepository) ListLikers(ctx context.Context, targetID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var likers []string
	for key := range m.interactions {
		if key.to == targetID && !slices.Contains(likers, key.from) {
			likers = append(likers, key.from)
		}
	}
	slices.Sort(likers)
	return likers, nil
}

// Count returns the number of stored edges.
func (m *MockInteractionRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.interactions)
}

// ──────────────────────────────────────────────
// MOCK SIGNAL INDEX
// ──────────────────────────────────────────────

// MockSignalIndex returns every indexed user from Search; it does no geo
// filtering. Like the Redis index it refuses searches centred beyond the GEO
// latitude limit and reports not-ready after Invalidate or Flush.
type MockSignalIndex struct {
	mu        sync.Mutex
	positions map[string]geo.Point
	ready     bool

	AddCallCount     int32
	SearchCallCount  int32
	RebuildCallCount int32
	AddError         error
	SearchError      error
}

func NewMockSignalIndex() *MockSignalIndex {
	return &MockSignalIndex{positions: make(map[string]geo.Point), ready: true}
}

func (m *MockSignalIndex) Add(ctx context.Context, userID string, p geo.Point) error {
	atomic.AddInt32(&m.AddCallCount, 1)
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[userID] = p
	return nil
}

func (m *MockSignalIndex) Search(ctx context.Context, p geo.Point, radiusMeters float64) ([]string, error) {
	atomic.AddInt32(&m.SearchCallCount, 1)
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	if !redis.Indexable(p) {
		return nil, redis.ErrOutsideIndexRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, redis.ErrIndexNotReady
	}
	ids := make([]string, 0, len(m.positions))
	for id := range m.positions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MockSignalIndex) Remove(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, userID)
	return nil
}

func (m *MockSignalIndex) Rebuild(ctx context.Context, signals map[string]geo.Point) error {
	atomic.AddInt32(&m.RebuildCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range signals {
		m.positions[id] = p
	}
	m.ready = true
	return nil
}

func (m *MockSignalIndex) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = false
	return nil
}

// Flush simulates a Redis restart: all entries and the ready marker are gone.
func (m *MockSignalIndex) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = make(map[string]geo.Point)
	m.ready = false
}

// Ready reports whether the index would serve searches.
func (m *MockSignalIndex) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Has reports whether userID is indexed.
func (m *MockSignalIndex) Has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.positions[userID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK ALARM GATE / PUBLISHER / NOTIFIER
// ──────────────────────────────────────────────

// MockAlarmGate allows each pair once until the mock is recreated.
type MockAlarmGate struct {
	mu       sync.Mutex
	seen     map[string]bool
	AllowErr error
}

func NewMockAlarmGate() *MockAlarmGate {
	return &MockAlarmGate{seen: make(map[string]bool)}
}

func (m *MockAlarmGate) Allow(ctx context.Context, fromID, toID string, ttl time.Duration) (bool, error) {
	if m.AllowErr != nil {
		return false, m.AllowErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fromID + ":" + toID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type publishedMessage struct {
	Subject string
	Data    []byte
}

// MockPublisher records published messages.
type MockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage

	PublishError error
}

func (m *MockPublisher) Publish(subject string, data []byte) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, publishedMessage{Subject: subject, Data: data})
	return nil
}

// Messages returns a copy of the published messages.
func (m *MockPublisher) Messages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

type alarmCall struct {
	FromID string
	Report LoveReport
}

// MockNotifier records NotifyLoveAlarm calls.
type MockNotifier struct {
	mu    sync.Mutex
	calls []alarmCall
}

func (m *MockNotifier) NotifyLoveAlarm(ctx context.Context, fromID string, report *LoveReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, alarmCall{FromID: fromID, Report: *report})
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockNotifier) Calls() []alarmCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

var errMockRedisDown = errors.New("mock: redis unavailable")

func at(lat, lng float64) *geo.Point {
	return &geo.Point{Lat: lat, Lng: lng}
}
