package rides

import (
	"context"
	"errors"
	"strings"

	"github.com/ridepoolhq/ridepool-backend/pkg/db"
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service defines the behavior needed by the rides controller.
type Service interface {
	Create(ctx context.Context, ownerID int64, req CreateRideRequest) (*RideDTO, error)
	Get(ctx context.Context, id int64) (*RideDTO, error)
	GetByCode(ctx context.Context, code string) (*RideDTO, error)
	List(ctx context.Context) ([]RideDTO, error)
	ListOwned(ctx context.Context, userID int64) ([]RideDTO, error)
	ListJoined(ctx context.Context, userID int64) ([]RideDTO, error)
	ListAvailable(ctx context.Context, userID int64) ([]RideDTO, error)
	Participants(ctx context.Context, rideID int64) ([]ParticipantDTO, error)
	Update(ctx context.Context, callerID, id int64, req UpdateRideRequest) (*RideDTO, error)
	Delete(ctx context.Context, callerID, id int64) error
}

type rideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	FindByID(ctx context.Context, id int64) (*models.Ride, error)
	FindByCode(ctx context.Context, code string) (*models.Ride, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListAll(ctx context.Context) ([]models.Ride, error)
	ListOwned(ctx context.Context, userID int64) ([]models.Ride, error)
	ListJoined(ctx context.Context, userID int64) ([]models.Ride, error)
	ListAvailable(ctx context.Context, userID int64) ([]models.Ride, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, p *models.Participation) error
	ListParticipants(ctx context.Context, rideID int64) ([]ParticipantRow, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RepoFactory builds a repository bound to the provided transaction handle.
type RepoFactory func(tx *gorm.DB) rideRepository

func defaultRepoFactory(tx *gorm.DB) rideRepository {
	return NewRepository(tx)
}

// ServiceParams bundles the dependencies required to build a rides service.
type ServiceParams struct {
	TxRunner    txRunner
	RepoFactory RepoFactory
	Reader      rideRepository
}

type service struct {
	tx          txRunner
	repoFactory RepoFactory
	reader      rideRepository
}

// NewService constructs a rides service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	if params.Reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reader repository is required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultRepoFactory
	}
	return &service{
		tx:          params.TxRunner,
		repoFactory: repoFactory,
		reader:      params.Reader,
	}, nil
}

// Create persists a ride with a fresh unique code and enrolls the owner as
// its first participant in the same transaction.
func (s *service) Create(ctx context.Context, ownerID int64, req CreateRideRequest) (*RideDTO, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if req.StartTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_time is required")
	}

	var created *models.Ride
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFactory(tx)

		ride, err := s.insertWithFreshCode(ctx, repo, &models.Ride{
			Title:       title,
			Description: req.Description,
			StartTime:   req.StartTime.Time,
			CreatedBy:   ownerID,
			IsActive:    true,
		})
		if err != nil {
			return err
		}

		if err := repo.AddParticipant(ctx, &models.Participation{
			UserID: ownerID,
			RideID: ride.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "auto-join owner")
		}

		created = ride
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// insertWithFreshCode retries code generation until the insert clears the
// unique constraint. The pre-check is an optimization only; the constraint
// stays authoritative under concurrent creates.
func (s *service) insertWithFreshCode(ctx context.Context, repo rideRepository, ride *models.Ride) (*models.Ride, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}

		taken, err := repo.CodeExists(ctx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check code")
		}
		if taken {
			continue
		}

		ride.Code = code
		if err := repo.Create(ctx, ride); err != nil {
			if db.IsUniqueViolation(err, "uq_rides_code") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ride")
		}
		return ride, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "exhausted ride code attempts")
}

func (s *service) Get(ctx context.Context, id int64) (*RideDTO, error) {
	ride, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return FromModel(ride), nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*RideDTO, error) {
	ride, err := s.reader.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return FromModel(ride), nil
}

func (s *service) List(ctx context.Context) ([]RideDTO, error) {
	rows, err := s.reader.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rides")
	}
	return toDTOs(rows), nil
}

func (s *service) ListOwned(ctx context.Context, userID int64) ([]RideDTO, error) {
	rows, err := s.reader.ListOwned(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list owned rides")
	}
	return toDTOs(rows), nil
}

func (s *service) ListJoined(ctx context.Context, userID int64) ([]RideDTO, error) {
	rows, err := s.reader.ListJoined(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list joined rides")
	}
	return toDTOs(rows), nil
}

func (s *service) ListAvailable(ctx context.Context, userID int64) ([]RideDTO, error) {
	rows, err := s.reader.ListAvailable(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available rides")
	}
	return toDTOs(rows), nil
}

// Participants lists a ride's members. A ride with no rows (including one
// that never existed) yields an empty array, not an error.
func (s *service) Participants(ctx context.Context, rideID int64) ([]ParticipantDTO, error) {
	rows, err := s.reader.ListParticipants(ctx, rideID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list participants")
	}
	out := make([]ParticipantDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, participantFromRow(row))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, callerID, id int64, req UpdateRideRequest) (*RideDTO, error) {
	ride, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if ride.CreatedBy != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the ride owner may modify it")
	}

	fields, err := updateFields(req)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.reader.UpdateFields(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update ride")
		}
	}

	updated, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return FromModel(updated), nil
}

// updateFields maps the sparse request onto column updates. Absent fields
// stay untouched; only description accepts an explicit null.
func updateFields(req UpdateRideRequest) (map[string]any, error) {
	fields := map[string]any{}

	if req.Title.Set {
		if !req.Title.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be null")
		}
		title := strings.TrimSpace(req.Title.Value)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		if len(title) > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title exceeds 100 characters")
		}
		fields["title"] = title
	}
	if req.Description.Set {
		if !req.Description.Valid {
			fields["description"] = nil
		} else {
			if len(req.Description.Value) > 255 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "description exceeds 255 characters")
			}
			fields["description"] = req.Description.Value
		}
	}
	if req.StartTime.Set {
		if !req.StartTime.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_time cannot be null")
		}
		fields["start_time"] = req.StartTime.Value.Time
	}
	if req.IsActive.Set {
		if !req.IsActive.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "is_active cannot be null")
		}
		fields["is_active"] = req.IsActive.Value
	}
	return fields, nil
}

func (s *service) Delete(ctx context.Context, callerID, id int64) error {
	ride, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return translateLookupErr(err)
	}
	if ride.CreatedBy != callerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the ride owner may delete it")
	}
	if err := s.reader.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete ride")
	}
	return nil
}

func translateLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ride not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup ride")
}

func toDTOs(rows []models.Ride) []RideDTO {
	out := make([]RideDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
