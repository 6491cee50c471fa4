package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string      `gorm:"primaryKey"`
	P256DH    string      `gorm:"column:p256dh;not null"`
	Auth      string      `gorm:"not null"`
	UserID    null.String `gorm:"size:64;index"`
	CreatedAt time.Time   `gorm:"not null"`

	// Spots the subscriber wants to hear about when they free up.
	Spots []*Spot `gorm:"many2many:subscription_spot_mapping;"`
}
