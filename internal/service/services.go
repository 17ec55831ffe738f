package service

import (
	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/client"
	"github.com/trackpoint/backend/internal/dto"
	"github.com/trackpoint/backend/internal/repository"
)

type Services interface {
	Tracker() TrackerService
	Feed() FeedBroker

	Shutdown()
}

type services struct {
	trackerService TrackerService
	feedBroker     FeedBroker
	batcher        *HistoryBatcher
	sweeper        *Sweeper
}

func NewServices(repositories repository.Repositories, config dto.Config, clients client.Clients) Services {
	cache := NewLocationCache(config.CacheTTL)
	batcher := NewHistoryBatcher(repositories.History(), config.BatchSize, config.FlushInterval)
	feedBroker := newFeedBroker(clients.RabbitMQClient())
	trackerService := newTrackerService(cache, batcher, repositories.Tracker(), feedBroker, config.InactiveThreshold)

	sweeper := NewSweeper(cache, repositories.Tracker(), config.InactiveThreshold, config.SweepInterval)
	sweeper.Start()

	return &services{
		trackerService: trackerService,
		feedBroker:     feedBroker,
		batcher:        batcher,
		sweeper:        sweeper,
	}
}

func (s services) Tracker() TrackerService {
	return s.trackerService
}

func (s services) Feed() FeedBroker {
	return s.feedBroker
}

// Shutdown stops the background loops and drains the batcher exactly once.
// Must complete before the store handle is closed.
func (s services) Shutdown() {
	s.sweeper.Stop()
	if err := s.batcher.Close(); err != nil {
		logrus.Errorf("Final history flush failed: %v", err)
	}
	if err := s.feedBroker.Close(); err != nil {
		logrus.Errorf("Failed to close update feed: %v", err)
	}
}
