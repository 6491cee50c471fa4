package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Spot holds the metadata of a parking spot as last reported by the backend.
type Spot struct {
	ID        string      `gorm:"primaryKey;size:64"` // Backend ID
	Label     string      `gorm:"size:128;not null"`
	Zone      null.String `gorm:"size:64"`
	Latitude  null.Float
	Longitude null.Float
	CreatedAt time.Time
	UpdatedAt time.Time
}
