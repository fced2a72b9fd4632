package participations

import (
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"github.com/ridepoolhq/ridepool-backend/pkg/types"
)

// ParticipationDTO is the transport shape of a ride membership.
type ParticipationDTO struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"user_id"`
	RideID            int64          `json:"ride_id"`
	Latitude          *float64       `json:"latitude"`
	Longitude         *float64       `json:"longitude"`
	LocationTimestamp *types.UTCTime `json:"location_timestamp"`
	JoinedAt          types.UTCTime  `json:"joined_at"`
	UpdatedAt         types.UTCTime  `json:"updated_at"`
}

// JoinRequest enrolls the caller into the ride behind a share code. The
// code's shape is not validated here; any code that resolves to no ride
// surfaces as a not-found during lookup.
type JoinRequest struct {
	RideCode string `json:"ride_code" validate:"required"`
}

// UpdateLocationRequest replaces the location triple. All three fields are
// required together.
type UpdateLocationRequest struct {
	Latitude          *float64       `json:"latitude" validate:"required"`
	Longitude         *float64       `json:"longitude" validate:"required"`
	LocationTimestamp *types.UTCTime `json:"location_timestamp" validate:"required"`
}

func FromModel(p *models.Participation) *ParticipationDTO {
	if p == nil {
		return nil
	}
	return &ParticipationDTO{
		ID:                p.ID,
		UserID:            p.UserID,
		RideID:            p.RideID,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		LocationTimestamp: types.UTCTimePtr(p.LocationTimestamp),
		JoinedAt:          types.NewUTCTime(p.JoinedAt),
		UpdatedAt:         types.NewUTCTime(p.UpdatedAt),
	}
}
