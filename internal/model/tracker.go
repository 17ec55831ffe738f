package model

import (
	"time"
)

type Tracker struct {
	UserKey    string `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Address    string    `gorm:"size:512"`
	IsTracking bool      `gorm:"not null;index"`
	LastSeenAt time.Time `gorm:"not null;index"`
}
