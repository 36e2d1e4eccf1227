package entities

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Behavior is an operator-annotated interval of an Event, in seconds from the video start.
type Behavior struct {
	ID          uint      `gorm:"primaryKey"`
	EventID     string    `gorm:"type:varchar(64);not null;index:idx_behavior_event_start"`
	StartTime   float64   `gorm:"not null;index:idx_behavior_event_start"`
	EndTime     float64   `gorm:"not null"`
	Description string    `gorm:"type:varchar(256);not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Behavior) TableName() string {
	return "behaviors"
}

// Validate checks that the interval is non-empty and the description is set.
func (b *Behavior) Validate() error {
	if b.EndTime <= b.StartTime {
		return fmt.Errorf("%w: end time %g must be greater than start time %g", ErrInvalid, b.EndTime, b.StartTime)
	}
	if strings.TrimSpace(b.Description) == "" {
		return fmt.Errorf("%w: description must not be empty", ErrInvalid)
	}
	return nil
}

// BeforeCreate rejects invalid intervals.
func (b *Behavior) BeforeCreate(tx *gorm.DB) error {
	return b.Validate()
}

// BehaviorChoice is a catalog entry of behavior descriptions.
type BehaviorChoice struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(256);not null;uniqueIndex"`
}

// TableName returns the table name for GORM.
func (BehaviorChoice) TableName() string {
	return "behavior_choices"
}
