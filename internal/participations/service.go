package participations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/db"
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service defines the behavior needed by the participations controller.
type Service interface {
	Join(ctx context.Context, userID int64, req JoinRequest) (*ParticipationDTO, error)
	Get(ctx context.Context, id int64) (*ParticipationDTO, error)
	List(ctx context.Context) ([]ParticipationDTO, error)
	UpdateLocation(ctx context.Context, callerID, id int64, req UpdateLocationRequest) (*ParticipationDTO, error)
	Leave(ctx context.Context, callerID, id int64) error
}

type participationRepository interface {
	Create(ctx context.Context, p *models.Participation) error
	FindByID(ctx context.Context, id int64) (*models.Participation, error)
	ListAll(ctx context.Context) ([]models.Participation, error)
	UpdateLocation(ctx context.Context, id int64, lat, lon float64, sampledAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

// rideFinder resolves a share code to the ride it belongs to.
type rideFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Ride, error)
}

// ServiceParams bundles the dependencies required to build a participations service.
type ServiceParams struct {
	Repo  participationRepository
	Rides rideFinder
}

type service struct {
	repo  participationRepository
	rides rideFinder
}

// NewService constructs a participations service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "participation repository is required")
	}
	if params.Rides == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ride finder is required")
	}
	return &service{repo: params.Repo, rides: params.Rides}, nil
}

func (s *service) Join(ctx context.Context, userID int64, req JoinRequest) (*ParticipationDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(req.RideCode))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ride_code is required")
	}

	ride, err := s.rides.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ride not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup ride")
	}

	p := &models.Participation{UserID: userID, RideID: ride.ID}
	if err := s.repo.Create(ctx, p); err != nil {
		if db.IsUniqueViolation(err, "uq_participations_user_ride") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "already joined")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create participation")
	}
	return FromModel(p), nil
}

func (s *service) Get(ctx context.Context, id int64) (*ParticipationDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return FromModel(p), nil
}

func (s *service) List(ctx context.Context) ([]ParticipationDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list participations")
	}
	out := make([]ParticipationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// UpdateLocation replaces the location triple. Existence is checked before
// ownership so a missing id never reads as forbidden.
func (s *service) UpdateLocation(ctx context.Context, callerID, id int64, req UpdateLocationRequest) (*ParticipationDTO, error) {
	if req.Latitude == nil || req.Longitude == nil || req.LocationTimestamp == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude, longitude and location_timestamp are required together")
	}
	if err := validateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if p.UserID != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the participant may update their location")
	}

	if err := s.repo.UpdateLocation(ctx, id, *req.Latitude, *req.Longitude, req.LocationTimestamp.Time); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update location")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return FromModel(updated), nil
}

func (s *service) Leave(ctx context.Context, callerID, id int64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateLookupErr(err)
	}
	if p.UserID != callerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the participant may leave")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete participation")
	}
	return nil
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

func translateLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "participation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup participation")
}
