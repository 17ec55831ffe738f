package repository

import (
	"fmt"

	"github.com/trackpoint/backend/internal/dto"
	"github.com/trackpoint/backend/internal/model"
	"gorm.io/gorm"
)

type HistoryRepository interface {
	AppendBatch(items []model.LocationHistory) error
}

type history struct {
	db *gorm.DB
}

func newHistoryRepository(db *gorm.DB) HistoryRepository {
	return &history{
		db: db,
	}
}

func (h *history) AppendBatch(items []model.LocationHistory) error {
	if len(items) == 0 {
		return nil
	}

	result := h.db.Create(&items)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", dto.ErrInternalFailure, result.Error)
	}

	return nil
}
