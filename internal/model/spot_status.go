package model

import (
	"time"
)

// SpotStatusOpen is the current status of a spot that is not available (hot table).
// Available spots have no row.
type SpotStatusOpen struct {
	SpotID     string    `gorm:"primaryKey;size:64"`
	ObservedAt time.Time `gorm:"not null"` // When this status was first observed
	Status     string    `gorm:"size:32;not null"`
}

// SpotStatusHistory is a finished non-available period of a spot (cold table).
type SpotStatusHistory struct {
	ID          int64     `gorm:"autoIncrement"`
	SpotID      string    `gorm:"size:64;not null;index;primaryKey"`
	ObservedAt  time.Time `gorm:"not null;index;primaryKey"` // When the period's end was observed
	Status      string    `gorm:"size:32;not null"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`
}
