package rides

import (
	"context"
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes ride-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a rides repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new ride row.
func (r *Repository) Create(ctx context.Context, ride *models.Ride) error {
	return r.db.WithContext(ctx).Create(ride).Error
}

// FindByID loads a ride by its primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Ride, error) {
	var ride models.Ride
	if err := r.db.WithContext(ctx).First(&ride, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ride, nil
}

// FindByCode loads a ride by its share code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Ride, error) {
	var ride models.Ride
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&ride).Error; err != nil {
		return nil, err
	}
	return &ride, nil
}

// CodeExists reports whether any ride already carries the given code.
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ride{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAll returns every ride.
func (r *Repository) ListAll(ctx context.Context) ([]models.Ride, error) {
	var out []models.Ride
	if err := r.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListOwned returns rides created by the user, soonest first.
func (r *Repository) ListOwned(ctx context.Context, userID int64) ([]models.Ride, error) {
	var out []models.Ride
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListJoined returns rides the user participates in, soonest first.
func (r *Repository) ListJoined(ctx context.Context, userID int64) ([]models.Ride, error) {
	var out []models.Ride
	err := r.db.WithContext(ctx).
		Joins("JOIN participations ON participations.ride_id = rides.id").
		Where("participations.user_id = ?", userID).
		Order("rides.start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAvailable returns rides the user has not joined, soonest first.
func (r *Repository) ListAvailable(ctx context.Context, userID int64) ([]models.Ride, error) {
	var out []models.Ride
	sub := r.db.
		Model(&models.Participation{}).
		Select("ride_id").
		Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Where("id NOT IN (?)", sub).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields applies a sparse column update and refreshes updated_at.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Ride{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the ride and, via its FK constraints, every participation.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Ride{}, "id = ?", id).Error
}

// AddParticipant inserts a participation row for the ride.
func (r *Repository) AddParticipant(ctx context.Context, p *models.Participation) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ListParticipants returns the ride's participations joined with usernames
// in a single query.
func (r *Repository) ListParticipants(ctx context.Context, rideID int64) ([]ParticipantRow, error) {
	var rows []ParticipantRow
	err := r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Select("participations.id, participations.user_id, participations.ride_id, users.username, participations.latitude, participations.longitude, participations.location_timestamp, participations.joined_at, participations.updated_at").
		Joins("JOIN users ON users.id = participations.user_id").
		Where("participations.ride_id = ?", rideID).
		Order("participations.joined_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
