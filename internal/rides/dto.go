package rides

import (
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"github.com/ridepoolhq/ridepool-backend/pkg/types"
)

// RideDTO is the transport shape of a ride.
type RideDTO struct {
	ID          int64         `json:"id"`
	Code        string        `json:"code"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	StartTime   types.UTCTime `json:"start_time"`
	CreatedBy   int64         `json:"created_by_user_id"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   types.UTCTime `json:"created_at"`
	UpdatedAt   types.UTCTime `json:"updated_at"`
}

// CreateRideRequest is the creation payload. The code is never
// client-supplied.
type CreateRideRequest struct {
	Title       string        `json:"title" validate:"required,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=255"`
	StartTime   types.UTCTime `json:"start_time" validate:"required"`
}

// UpdateRideRequest applies a sparse update: absent fields are left
// unchanged, and only description may be set to null.
type UpdateRideRequest struct {
	Title       types.Optional[string]        `json:"title"`
	Description types.Optional[string]        `json:"description"`
	StartTime   types.Optional[types.UTCTime] `json:"start_time"`
	IsActive    types.Optional[bool]          `json:"is_active"`
}

// ParticipantDTO is a participation row enriched with the member's username.
type ParticipantDTO struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"user_id"`
	RideID            int64          `json:"ride_id"`
	Username          string         `json:"username"`
	Latitude          *float64       `json:"latitude"`
	Longitude         *float64       `json:"longitude"`
	LocationTimestamp *types.UTCTime `json:"location_timestamp"`
	JoinedAt          types.UTCTime  `json:"joined_at"`
	UpdatedAt         types.UTCTime  `json:"updated_at"`
}

// ParticipantRow is the repo-level join result backing ParticipantDTO.
type ParticipantRow struct {
	ID                int64
	UserID            int64
	RideID            int64
	Username          string
	Latitude          *float64
	Longitude         *float64
	LocationTimestamp *time.Time
	JoinedAt          time.Time
	UpdatedAt         time.Time
}

func FromModel(r *models.Ride) *RideDTO {
	if r == nil {
		return nil
	}
	return &RideDTO{
		ID:          r.ID,
		Code:        r.Code,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   types.NewUTCTime(r.StartTime),
		CreatedBy:   r.CreatedBy,
		IsActive:    r.IsActive,
		CreatedAt:   types.NewUTCTime(r.CreatedAt),
		UpdatedAt:   types.NewUTCTime(r.UpdatedAt),
	}
}

func participantFromRow(row ParticipantRow) ParticipantDTO {
	return ParticipantDTO{
		ID:                row.ID,
		UserID:            row.UserID,
		RideID:            row.RideID,
		Username:          row.Username,
		Latitude:          row.Latitude,
		Longitude:         row.Longitude,
		LocationTimestamp: types.UTCTimePtr(row.LocationTimestamp),
		JoinedAt:          types.NewUTCTime(row.JoinedAt),
		UpdatedAt:         types.NewUTCTime(row.UpdatedAt),
	}
}
