package entities

import (
	"time"

	"gorm.io/gorm"
)

// Event is a single camera-trap trigger.
type Event struct {
	ID       string `gorm:"primaryKey;type:varchar(64)"`
	DeviceID string `gorm:"type:varchar(128);index"`

	// Timestamps are stored in UTC
	StartedAt       time.Time `gorm:"not null;index"`
	EndedAt         time.Time
	DurationSeconds float64 `gorm:"not null;default:0;index"`

	// StartHour is the UTC hour of StartedAt, kept for time-of-day filtering.
	StartHour int `gorm:"not null;default:0;index"`

	Species string `gorm:"type:varchar(256)"` // primary species label
	Status  string `gorm:"type:varchar(32)"`

	VideoPath     string `gorm:"type:varchar(1024)"`
	DetectionPath string `gorm:"type:varchar(1024)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	// Relationships for preloading. Deletes cascade in the store, not through FKs.
	Detection *Detection `gorm:"foreignKey:EventID;references:ID;constraint:false"`
	Behaviors []Behavior `gorm:"foreignKey:EventID;references:ID;constraint:false"`
}

// TableName returns the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// Normalize converts timestamps to UTC and derives StartHour.
func (e *Event) Normalize() {
	e.StartedAt = e.StartedAt.UTC()
	if !e.EndedAt.IsZero() {
		e.EndedAt = e.EndedAt.UTC()
	}
	e.StartHour = e.StartedAt.Hour()
}

// BeforeCreate normalizes the event before insert.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	e.Normalize()
	return nil
}
