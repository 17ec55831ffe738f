package repository

import (
	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/model"
	"gorm.io/gorm"
)

type Repositories interface {
	Tracker() TrackerRepository
	History() HistoryRepository
}

type repositories struct {
	trackerRepository TrackerRepository
	historyRepository HistoryRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	err := db.AutoMigrate(&model.Tracker{}, &model.LocationHistory{})
	if err != nil {
		logrus.Panic(err)
	}
	trackerRepository := newTrackerRepository(db)
	historyRepository := newHistoryRepository(db)
	return &repositories{
		trackerRepository: trackerRepository,
		historyRepository: historyRepository,
	}
}

func (r repositories) Tracker() TrackerRepository {
	return r.trackerRepository
}

func (r repositories) History() HistoryRepository {
	return r.historyRepository
}
