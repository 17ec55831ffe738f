package model

import "time"

type LocationHistory struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserKey   string  `gorm:"not null;index"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
	Address   string  `gorm:"size:512"`
}
