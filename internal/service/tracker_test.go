package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trackpoint/backend/internal/model"
)

type fakeTrackerRepository struct {
	mu sync.Mutex

	active      []model.Tracker
	queryFail   bool
	queryCalls  int
	upserts     []string
	touches     []string
	setTracking map[string]bool
	markCalls   int
}

func newFakeTrackerRepository() *fakeTrackerRepository {
	return &fakeTrackerRepository{setTracking: make(map[string]bool)}
}

func (f *fakeTrackerRepository) Upsert(key string, latitude, longitude float64, address string, tracking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, key)
	return nil
}

func (f *fakeTrackerRepository) QueryActive(threshold time.Duration) ([]model.Tracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryFail {
		return nil, errors.New("store unavailable")
	}
	return f.active, nil
}

func (f *fakeTrackerRepository) MarkInactive(threshold time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	for i := range f.active {
		if f.active[i].LastSeenAt.Before(time.Now().Add(-threshold)) {
			f.active[i].IsTracking = false
		}
	}
	return nil
}

func (f *fakeTrackerRepository) TouchLastSeen(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, key)
	return nil
}

func (f *fakeTrackerRepository) SetTracking(key string, tracking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTracking[key] = tracking
	return nil
}

func (f *fakeTrackerRepository) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

// waitFor polls until check passes or the deadline expires; used to observe
// fire-and-forget store calls.
func waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newTestTrackerService(repo *fakeTrackerRepository) (TrackerService, *LocationCache, *fakeHistoryRepository) {
	cache := NewLocationCache(time.Second)
	history := newFakeHistoryRepository()
	batcher := NewHistoryBatcher(history, 1000, time.Hour)
	if repo == nil {
		// A nil *fakeTrackerRepository in an interface value would not
		// compare equal to nil, so pass the untyped nil through.
		return newTrackerService(cache, batcher, nil, nil, time.Minute), cache, history
	}
	return newTrackerService(cache, batcher, repo, nil, time.Minute), cache, history
}

func TestListActiveServesFromCache(t *testing.T) {
	repo := newFakeTrackerRepository()
	svc, _, _ := newTestTrackerService(repo)

	svc.UpdateLocation("u1", 50.0, 19.9, "Main St 1")
	svc.UpdateLocation("u2", 51.0, 20.0, "")

	result := svc.ListActive()
	if result.Source != SourceCache {
		t.Fatalf("expected source cache, got %s", result.Source)
	}
	if len(result.Users) != 2 {
		t.Fatalf("expected 2 active users, got %d", len(result.Users))
	}
	if repo.queryCount() != 0 {
		t.Fatal("expected the store reader to be skipped on a warm cache")
	}
}

func TestListActiveColdCacheFallsBackToStore(t *testing.T) {
	repo := newFakeTrackerRepository()
	repo.active = []model.Tracker{
		{UserKey: "u1", Latitude: 50.0, Longitude: 19.9, Address: "Main St 1", IsTracking: true, LastSeenAt: time.Now()},
	}
	svc, _, _ := newTestTrackerService(repo)

	result := svc.ListActive()
	if result.Source != SourceStore {
		t.Fatalf("expected source store, got %s", result.Source)
	}
	if len(result.Users) != 1 || result.Users[0].UserKey != "u1" {
		t.Fatalf("unexpected users: %+v", result.Users)
	}
	if repo.queryCount() != 1 {
		t.Fatalf("expected exactly one store query, got %d", repo.queryCount())
	}
}

func TestListActiveWithoutStore(t *testing.T) {
	svc, _, _ := newTestTrackerService(nil)

	result := svc.ListActive()
	if result.Source != SourceNone {
		t.Fatalf("expected source none, got %s", result.Source)
	}
	if len(result.Users) != 0 {
		t.Fatalf("expected no users, got %d", len(result.Users))
	}
}

func TestListActiveIgnoresStoppedEntries(t *testing.T) {
	repo := newFakeTrackerRepository()
	svc, _, _ := newTestTrackerService(repo)

	svc.UpdateLocation("u1", 50.0, 19.9, "")
	svc.StopTracking("u1")

	// The cache still holds u1, but it no longer counts as active, so the
	// read falls through to the store.
	result := svc.ListActive()
	if result.Source != SourceStore {
		t.Fatalf("expected source store, got %s", result.Source)
	}
	if repo.queryCount() != 1 {
		t.Fatalf("expected one store query, got %d", repo.queryCount())
	}
}

func TestListActiveStoreErrorReturnsEmpty(t *testing.T) {
	repo := newFakeTrackerRepository()
	repo.queryFail = true
	svc, _, _ := newTestTrackerService(repo)

	result := svc.ListActive()
	if result.Source != SourceStore {
		t.Fatalf("expected source store, got %s", result.Source)
	}
	if len(result.Users) != 0 {
		t.Fatalf("expected no users on store error, got %d", len(result.Users))
	}
}

func TestUpdateLocationWritesThroughCache(t *testing.T) {
	repo := newFakeTrackerRepository()
	svc, cache, _ := newTestTrackerService(repo)

	svc.UpdateLocation("u1", 50.0, 19.9, "")

	record, exists := cache.Get("u1")
	if !exists {
		t.Fatal("expected u1 in the cache immediately after the update")
	}
	if !record.Tracking {
		t.Fatal("expected the record to be tracking")
	}
	if record.Address != "Unknown" {
		t.Fatalf("expected the default address, got %q", record.Address)
	}

	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.upserts) == 1 && repo.upserts[0] == "u1"
	})
}

func TestUpdateLocationEnqueuesHistory(t *testing.T) {
	svc, _, history := newTestTrackerService(newFakeTrackerRepository())

	svc.UpdateLocation("u1", 50.0, 19.9, "Main St 1")
	svc.UpdateLocation("u1", 50.1, 19.8, "Main St 2")

	// Force the drain; the queue holds both appends in order.
	trackerSvc := svc.(*trackerService)
	if err := trackerSvc.batcher.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if got := history.totalItems(); got != 2 {
		t.Fatalf("expected 2 history records, got %d", got)
	}
}

func TestHeartbeatRefreshesLastSeen(t *testing.T) {
	repo := newFakeTrackerRepository()
	svc, cache, _ := newTestTrackerService(repo)

	svc.UpdateLocation("u1", 50.0, 19.9, "")
	before, _ := cache.Get("u1")

	time.Sleep(5 * time.Millisecond)
	svc.Heartbeat("u1")

	after, exists := cache.Get("u1")
	if !exists {
		t.Fatal("expected u1 after heartbeat")
	}
	if after.LastSeen < before.LastSeen {
		t.Fatal("expected last seen to move forward")
	}
	if after.Latitude != before.Latitude || after.Longitude != before.Longitude {
		t.Fatal("heartbeat must not move the tracker")
	}

	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.touches) == 1
	})
}

func TestStopTrackingUpdatesCacheAndStore(t *testing.T) {
	repo := newFakeTrackerRepository()
	svc, cache, _ := newTestTrackerService(repo)

	svc.UpdateLocation("u1", 50.0, 19.9, "")
	svc.StopTracking("u1")

	record, exists := cache.Get("u1")
	if !exists {
		t.Fatal("expected u1 to stay cached after stop")
	}
	if record.Tracking {
		t.Fatal("expected tracking to be off")
	}

	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		tracking, ok := repo.setTracking["u1"]
		return ok && !tracking
	})
}
