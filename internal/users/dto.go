package users

import (
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"github.com/ridepoolhq/ridepool-backend/pkg/types"
)

// UserDTO is the transport shape that omits the credential hash.
type UserDTO struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	CreatedAt types.UTCTime `json:"created_at"`
	UpdatedAt types.UTCTime `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	PasswordHash string
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=25"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: types.NewUTCTime(u.CreatedAt),
		UpdatedAt: types.NewUTCTime(u.UpdatedAt),
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
	}
}
