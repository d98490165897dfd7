package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lovealarm/internal/domain"
	"lovealarm/internal/geo"
	"lovealarm/internal/matcher"
	"lovealarm/internal/repository"
)

func newTestMatcher(t *testing.T) *matcher.Matcher {
	t.Helper()
	m, err := matcher.New(matcher.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	return m
}

func resultIDs(results []matcher.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.UserID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// seedSanFrancisco adds the viewer "me" and three others around Market Street.
func seedSanFrancisco(userRepo *MockUserRepository) {
	userRepo.AddUser(&domain.User{ID: "me", Location: at(37.7749, -122.4194)})
	userRepo.AddUser(&domain.User{ID: "A", Location: at(37.7750, -122.4195), Signaling: true})
	userRepo.AddUser(&domain.User{ID: "B", Location: at(37.8044, -122.2712), Signaling: true})
	userRepo.AddUser(&domain.User{ID: "C", Location: at(37.7755, -122.4200)})
}

func TestActivate_StoresPositionAndExpiry(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	userRepo.AddUser(&domain.User{ID: "u1"})

	svc := NewSignalService(userRepo, index, newTestMatcher(t), 30*time.Minute)
	fixed := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "u1", Lat: 37.5, Lng: 127})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !user.Signaling {
		t.Error("expected signal to be on")
	}
	if !user.SignalExpiresAt.Equal(fixed.Add(30 * time.Minute)) {
		t.Errorf("unexpected expiry %v", user.SignalExpiresAt)
	}
	if user.Location == nil || *user.Location != (geo.Point{Lat: 37.5, Lng: 127}) {
		t.Errorf("expected fresh position to be stored, got %+v", user.Location)
	}
	if !index.Has("u1") {
		t.Error("expected signal to be indexed")
	}
}

func TestActivate_WithoutTTLNeverExpires(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	userRepo.AddUser(&domain.User{ID: "u1"})

	svc := NewSignalService(userRepo, nil, newTestMatcher(t), 0)
	user, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "u1", Lat: 0, Lng: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.SignalExpiresAt.IsZero() {
		t.Errorf("expected no expiry, got %v", user.SignalExpiresAt)
	}
}

func TestActivate_Errors(t *testing.T) {
	t.Parallel()

	svc := NewSignalService(NewMockUserRepository(), nil, newTestMatcher(t), time.Minute)

	if _, err := svc.Activate(context.Background(), ActivateSignalRequest{Lat: 0, Lng: 0}); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
	if _, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "u1", Lat: -90.5, Lng: 0}); !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
	if _, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "ghost", Lat: 0, Lng: 0}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeactivate_RemovesFromIndex(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	userRepo.AddUser(&domain.User{ID: "u1"})

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	if _, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "u1", Lat: 0, Lng: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Deactivate(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := userRepo.GetUser("u1")
	if stored.Signaling || !stored.SignalExpiresAt.IsZero() {
		t.Errorf("expected signal off, got signaling=%v expires=%v", stored.Signaling, stored.SignalExpiresAt)
	}
	if index.Has("u1") {
		t.Error("expected signal to be removed from index")
	}
}

func TestNearby_WithoutIndex_UsesDatabaseEnumeration(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	seedSanFrancisco(userRepo)

	svc := NewSignalService(userRepo, nil, newTestMatcher(t), time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Fatalf("expected [A], got %v", resultIDs(results))
	}
	if results[0].Distance < 10 || results[0].Distance > 20 {
		t.Errorf("expected ~15 m, got %.2f", results[0].Distance)
	}
	if results[0].Unit != geo.Meters {
		t.Errorf("expected meters, got %s", results[0].Unit)
	}
	if userRepo.ListSignalingCallCount != 1 {
		t.Errorf("expected ListSignaling once, got %d", userRepo.ListSignalingCallCount)
	}
}

func TestNearby_WithIndex_RechecksDatabase(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	seedSanFrancisco(userRepo)
	userRepo.AddUser(&domain.User{
		ID:              "expired",
		Location:        at(37.7749, -122.4194),
		Signaling:       true,
		SignalExpiresAt: time.Now().Add(-time.Minute),
	})

	// The index may hold users who are no longer signaling.
	for _, id := range []string{"A", "B", "C", "expired"} {
		_ = index.Add(context.Background(), id, *userRepo.GetUser(id).Location)
	}

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Errorf("expected [A], got %v", resultIDs(results))
	}
	if userRepo.GetPresencesCallCount != 1 || userRepo.ListSignalingCallCount != 0 {
		t.Errorf("expected index path, got GetPresences=%d ListSignaling=%d",
			userRepo.GetPresencesCallCount, userRepo.ListSignalingCallCount)
	}
	if index.Has("C") || index.Has("expired") {
		t.Error("expected stale signals to be evicted from the index")
	}
	if !index.Has("A") || !index.Has("B") {
		t.Error("active signals must stay indexed")
	}
}

func TestNearby_IndexFailureFallsBack(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	index.SearchError = errMockRedisDown
	seedSanFrancisco(userRepo)

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Errorf("expected [A], got %v", resultIDs(results))
	}
	if userRepo.ListSignalingCallCount != 1 {
		t.Errorf("expected fallback to ListSignaling, got %d calls", userRepo.ListSignalingCallCount)
	}
}

func TestNearby_LargerRadiusIncludesFartherUsers(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	seedSanFrancisco(userRepo)

	m, err := matcher.New(matcher.Config{NearbyRadiusMeters: 20000, LoveRadiusMeters: 100})
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}

	svc := NewSignalService(userRepo, nil, m, time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", resultIDs(results))
	}
}

func TestNearby_ExcludesSelfWhenSignaling(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	userRepo.AddUser(&domain.User{ID: "me", Location: at(0, 0), Signaling: true})

	svc := NewSignalService(userRepo, nil, newTestMatcher(t), time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", resultIDs(results))
	}
}

func TestNearby_MissingTargetPosition(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	userRepo.AddUser(&domain.User{ID: "me"})

	svc := NewSignalService(userRepo, nil, newTestMatcher(t), time.Hour)
	_, err := svc.Nearby(context.Background(), "me")
	if !errors.Is(err, matcher.ErrMissingTargetPosition) {
		t.Errorf("expected ErrMissingTargetPosition, got %v", err)
	}

	_, err = svc.Nearby(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNearby_FailedIndexWriteKeepsUserDiscoverable(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	userRepo.AddUser(&domain.User{ID: "me", Location: at(37.7749, -122.4194)})
	userRepo.AddUser(&domain.User{ID: "A"})

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	ctx := context.Background()

	index.AddError = errMockRedisDown
	if _, err := svc.Activate(ctx, ActivateSignalRequest{UserID: "A", Lat: 37.7750, Lng: -122.4195}); err != nil {
		t.Fatalf("activation must not fail on an index error: %v", err)
	}
	if index.Ready() {
		t.Fatal("expected a failed write to invalidate the index")
	}
	index.AddError = nil

	results, err := svc.Nearby(ctx, "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Fatalf("expected [A], got %v", resultIDs(results))
	}
	if userRepo.ListSignalingCallCount != 1 || index.RebuildCallCount != 1 {
		t.Errorf("expected database read and rebuild, got ListSignaling=%d Rebuild=%d",
			userRepo.ListSignalingCallCount, index.RebuildCallCount)
	}
	if !index.Has("A") || !index.Ready() {
		t.Error("expected the rebuild to restore the missing signal")
	}

	// The rebuilt index serves the next search.
	results, err = svc.Nearby(ctx, "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Errorf("expected [A], got %v", resultIDs(results))
	}
	if userRepo.GetPresencesCallCount != 1 {
		t.Errorf("expected index path after rebuild, got GetPresences=%d", userRepo.GetPresencesCallCount)
	}
}

func TestNearby_FlushedIndexIsRebuilt(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	seedSanFrancisco(userRepo)
	for _, id := range []string{"A", "B"} {
		_ = index.Add(context.Background(), id, *userRepo.GetUser(id).Location)
	}
	index.Flush()

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Errorf("expected [A], got %v", resultIDs(results))
	}
	if !index.Has("A") || !index.Has("B") {
		t.Error("expected signaling users to be re-indexed")
	}
	if index.Has("C") {
		t.Error("non-signaling users must not be indexed")
	}
}

func TestNearby_BeyondGeoLatitudeUsesDatabase(t *testing.T) {
	t.Parallel()

	userRepo := NewMockUserRepository()
	index := NewMockSignalIndex()
	userRepo.AddUser(&domain.User{ID: "me", Location: at(86, 10)})
	userRepo.AddUser(&domain.User{ID: "A"})

	svc := NewSignalService(userRepo, index, newTestMatcher(t), time.Hour)
	if _, err := svc.Activate(context.Background(), ActivateSignalRequest{UserID: "A", Lat: 86.0001, Lng: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := svc.Nearby(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(resultIDs(results), []string{"A"}) {
		t.Errorf("expected [A], got %v", resultIDs(results))
	}
	if userRepo.ListSignalingCallCount != 1 {
		t.Errorf("expected database read, got ListSignaling=%d", userRepo.ListSignalingCallCount)
	}
}
