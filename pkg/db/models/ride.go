package models

import "time"

// Ride is a planned shared trip addressed by a six character share code.
// The code's uniqueness is enforced by uq_rides_code; the generator treats
// that constraint as the source of truth under concurrent creates.
type Ride struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Code        string    `gorm:"size:6;not null;uniqueIndex:uq_rides_code"`
	Title       string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:255"`
	StartTime   time.Time `gorm:"column:start_time;not null"`
	CreatedBy   int64     `gorm:"column:created_by;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
