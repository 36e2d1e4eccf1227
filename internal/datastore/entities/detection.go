package entities

import (
	"time"

	"gorm.io/gorm"
)

// Detection is the machine detection result of an Event.
//
// ClassesDetected is never modified after creation. An operator override is stored in
// ClassesOverridden with HasOverride set; an empty override is a valid "no species" value.
type Detection struct {
	ID      uint   `gorm:"primaryKey"`
	EventID string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Payload RawDocument `gorm:"type:text"`

	ClassesDetected   SpeciesList   `gorm:"type:text"`
	ClassesOverridden SpeciesList   `gorm:"type:text"`
	HasOverride       bool          `gorm:"not null;default:false"`
	MaxCountPerFrame  SpeciesCounts `gorm:"type:text"`

	// MaxConfidence mirrors Payload.event_summary.max_confidence
	MaxConfidence *float64 `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Detection) TableName() string {
	return "detections"
}

// EffectiveSpecies returns the overridden list when an override is present,
// otherwise the detected list.
func (d *Detection) EffectiveSpecies() []string {
	if d.HasOverride {
		if d.ClassesOverridden == nil {
			return []string{}
		}
		return d.ClassesOverridden
	}
	return d.ClassesDetected
}

// Overridden returns the override list, or nil when no override is present.
func (d *Detection) Overridden() []string {
	if !d.HasOverride {
		return nil
	}
	if d.ClassesOverridden == nil {
		return []string{}
	}
	return d.ClassesOverridden
}

// SyncSummary validates the payload and copies its max confidence into MaxConfidence.
func (d *Detection) SyncSummary() error {
	summary, err := d.Payload.Summary()
	if err != nil {
		return err
	}
	d.MaxConfidence = summary.EventSummary.MaxConfidence
	return nil
}

// BeforeCreate extracts typed fields from the payload before insert.
func (d *Detection) BeforeCreate(tx *gorm.DB) error {
	return d.SyncSummary()
}
