package models

import "time"

// Participation links one user to one ride, optionally carrying their last
// reported coordinates. uq_participations_user_ride guarantees at most one
// membership per (user, ride) pair even under racing joins; the ride and
// user foreign keys cascade deletes onto this table.
type Participation struct {
	ID                int64      `gorm:"primaryKey;autoIncrement"`
	UserID            int64      `gorm:"column:user_id;not null;uniqueIndex:uq_participations_user_ride"`
	RideID            int64      `gorm:"column:ride_id;not null;uniqueIndex:uq_participations_user_ride"`
	Latitude          *float64   `gorm:"column:latitude"`
	Longitude         *float64   `gorm:"column:longitude"`
	LocationTimestamp *time.Time `gorm:"column:location_timestamp"`
	JoinedAt          time.Time  `gorm:"column:joined_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
