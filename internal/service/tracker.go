package service

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/repository"
)

// Source tags where a ListActive result came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceNone  Source = "none"
)

const defaultAddress = "Unknown"

type ActiveUser struct {
	UserKey   string  `json:"user_key"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Tracking  bool    `json:"tracking"`
	LastSeen  int64   `json:"last_seen"`
}

type ActiveResult struct {
	Users  []ActiveUser `json:"users"`
	Source Source       `json:"source"`
}

type TrackerService interface {
	UpdateLocation(key string, latitude, longitude float64, address string)
	Heartbeat(key string)
	StopTracking(key string)
	ListActive() ActiveResult
}

// trackerService is the read/write decoupling layer: updates write through
// the cache synchronously and reach the store asynchronously, reads prefer
// the cache and fall back to the store only when it is cold.
type trackerService struct {
	cache             *LocationCache
	batcher           *HistoryBatcher
	trackerRepository repository.TrackerRepository
	feedBroker        FeedBroker
	inactiveThreshold time.Duration
}

func newTrackerService(
	cache *LocationCache,
	batcher *HistoryBatcher,
	trackerRepository repository.TrackerRepository,
	feedBroker FeedBroker,
	inactiveThreshold time.Duration,
) TrackerService {
	return &trackerService{
		cache:             cache,
		batcher:           batcher,
		trackerRepository: trackerRepository,
		feedBroker:        feedBroker,
		inactiveThreshold: inactiveThreshold,
	}
}

// UpdateLocation is the fast path: the cache reflects the update before the
// call returns, the history append and the store upsert happen in the
// background.
func (t *trackerService) UpdateLocation(key string, latitude, longitude float64, address string) {
	if address == "" {
		address = defaultAddress
	}

	record := LocationRecord{
		Latitude:  latitude,
		Longitude: longitude,
		Address:   address,
		Tracking:  true,
		LastSeen:  time.Now().UnixMilli(),
	}

	t.cache.Set(key, record)

	t.batcher.Enqueue(HistoryItem{
		UserKey:   key,
		Latitude:  latitude,
		Longitude: longitude,
		Address:   address,
	})

	if t.trackerRepository != nil {
		go func() {
			if err := t.trackerRepository.Upsert(key, latitude, longitude, address, true); err != nil {
				logrus.Errorf("Failed to upsert tracker %s: %v", key, err)
			}
		}()
	}

	t.publish(key, record)
}

// Heartbeat refreshes a tracker's last-seen time without moving it.
func (t *trackerService) Heartbeat(key string) {
	if record, exists := t.cache.Get(key); exists {
		record.LastSeen = time.Now().UnixMilli()
		t.cache.Set(key, record)
	}

	if t.trackerRepository != nil {
		go func() {
			if err := t.trackerRepository.TouchLastSeen(key); err != nil {
				logrus.Errorf("Failed to touch tracker %s: %v", key, err)
			}
		}()
	}
}

func (t *trackerService) StopTracking(key string) {
	if record, exists := t.cache.Get(key); exists {
		record.Tracking = false
		t.cache.Set(key, record)
		t.publish(key, record)
	}

	if t.trackerRepository != nil {
		go func() {
			if err := t.trackerRepository.SetTracking(key, false); err != nil {
				logrus.Errorf("Failed to stop tracking %s: %v", key, err)
			}
		}()
	}
}

// ListActive serves from the cache when it holds at least one tracking
// entry. Every tracking update writes through the cache first, so under
// normal operation the cache holds the complete recent-activity set; the
// store fallback exists for the cold cache right after a restart.
func (t *trackerService) ListActive() ActiveResult {
	snapshot := t.cache.Snapshot()

	users := make([]ActiveUser, 0, len(snapshot))
	for key, record := range snapshot {
		if !record.Tracking {
			continue
		}
		users = append(users, ActiveUser{
			UserKey:   key,
			Latitude:  record.Latitude,
			Longitude: record.Longitude,
			Address:   record.Address,
			Tracking:  record.Tracking,
			LastSeen:  record.LastSeen,
		})
	}

	if len(users) > 0 {
		return ActiveResult{Users: users, Source: SourceCache}
	}

	if t.trackerRepository == nil {
		return ActiveResult{Users: []ActiveUser{}, Source: SourceNone}
	}

	trackers, err := t.trackerRepository.QueryActive(t.inactiveThreshold)
	if err != nil {
		logrus.Errorf("Failed to query active trackers: %v", err)
		return ActiveResult{Users: []ActiveUser{}, Source: SourceStore}
	}

	users = make([]ActiveUser, 0, len(trackers))
	for _, tracker := range trackers {
		users = append(users, ActiveUser{
			UserKey:   tracker.UserKey,
			Latitude:  tracker.Latitude,
			Longitude: tracker.Longitude,
			Address:   tracker.Address,
			Tracking:  tracker.IsTracking,
			LastSeen:  tracker.LastSeenAt.UnixMilli(),
		})
	}

	return ActiveResult{Users: users, Source: SourceStore}
}

func (t *trackerService) publish(key string, record LocationRecord) {
	if t.feedBroker == nil {
		return
	}
	t.feedBroker.Publish(LocationUpdate{
		UserKey:   key,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		Address:   record.Address,
		Tracking:  record.Tracking,
		LastSeen:  record.LastSeen,
	})
}
