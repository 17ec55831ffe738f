package service

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/repository"
)

// Sweeper reconciles the cache and the store on a fixed interval: expired
// cache entries are evicted, and store-side trackers past the inactivity
// threshold are flipped to not-tracking.
type Sweeper struct {
	cache             *LocationCache
	trackerRepository repository.TrackerRepository
	inactiveThreshold time.Duration
	interval          time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewSweeper(cache *LocationCache, trackerRepository repository.TrackerRepository, inactiveThreshold, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:             cache,
		trackerRepository: trackerRepository,
		inactiveThreshold: inactiveThreshold,
		interval:          interval,
		done:              make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.done:
				return
			}
		}
	}()
}

// Sweep runs one tick: cache cleanup first, then the store-side flip. A
// failed store call is logged; the next tick retries naturally.
func (s *Sweeper) Sweep() {
	s.cache.Cleanup()

	if s.trackerRepository == nil {
		return
	}
	if err := s.trackerRepository.MarkInactive(s.inactiveThreshold); err != nil {
		logrus.Errorf("Failed to mark stale trackers inactive: %v", err)
	}
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
