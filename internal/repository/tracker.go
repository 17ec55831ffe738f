package repository

import (
	"fmt"
	"time"

	"github.com/trackpoint/backend/internal/dto"
	"github.com/trackpoint/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrackerRepository interface {
	Upsert(key string, latitude, longitude float64, address string, tracking bool) error
	QueryActive(threshold time.Duration) ([]model.Tracker, error)
	MarkInactive(threshold time.Duration) error
	TouchLastSeen(key string) error
	SetTracking(key string, tracking bool) error
}

type tracker struct {
	db *gorm.DB
}

func newTrackerRepository(db *gorm.DB) TrackerRepository {
	return &tracker{
		db: db,
	}
}

func (t *tracker) Upsert(key string, latitude, longitude float64, address string, tracking bool) error {
	record := model.Tracker{
		UserKey:    key,
		Latitude:   latitude,
		Longitude:  longitude,
		Address:    address,
		IsTracking: tracking,
		LastSeenAt: time.Now().UTC(),
	}

	result := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"latitude", "longitude", "address", "is_tracking", "last_seen_at", "updated_at",
		}),
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return nil
}

func (t *tracker) QueryActive(threshold time.Duration) ([]model.Tracker, error) {
	var trackers []model.Tracker
	cutoff := time.Now().UTC().Add(-threshold)
	result := t.db.
		Where("is_tracking = ? AND last_seen_at > ?", true, cutoff).
		Order("last_seen_at DESC").
		Find(&trackers)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return trackers, nil
}

func (t *tracker) MarkInactive(threshold time.Duration) error {
	cutoff := time.Now().UTC().Add(-threshold)
	result := t.db.Model(&model.Tracker{}).
		Where("is_tracking = ? AND last_seen_at < ?", true, cutoff).
		Update("is_tracking", false)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return nil
}

func (t *tracker) TouchLastSeen(key string) error {
	result := t.db.Model(&model.Tracker{}).
		Where("user_key = ?", key).
		Update("last_seen_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return nil
}

func (t *tracker) SetTracking(key string, tracking bool) error {
	result := t.db.Model(&model.Tracker{}).
		Where("user_key = ?", key).
		Update("is_tracking", tracking)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return nil
}
