package participations

import (
	"context"
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes participation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a participations repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a membership row. The (user, ride) unique constraint is the
// arbiter under concurrent joins.
func (r *Repository) Create(ctx context.Context, p *models.Participation) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID loads a participation by its primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Participation, error) {
	var p models.Participation
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAll returns every participation ordered by id.
func (r *Repository) ListAll(ctx context.Context) ([]models.Participation, error) {
	var out []models.Participation
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLocation replaces the location triple and refreshes updated_at.
func (r *Repository) UpdateLocation(ctx context.Context, id int64, lat, lon float64, sampledAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"latitude":           lat,
			"longitude":          lon,
			"location_timestamp": sampledAt,
			"updated_at":         time.Now().UTC(),
		}).Error
}

// Delete removes the membership row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Participation{}, "id = ?", id).Error
}
