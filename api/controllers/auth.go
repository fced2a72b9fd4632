package controllers

import (
	"net/http"

	"github.com/ridepoolhq/ridepool-backend/api/middleware"
	"github.com/ridepoolhq/ridepool-backend/api/responses"
	"github.com/ridepoolhq/ridepool-backend/internal/auth"
	"github.com/ridepoolhq/ridepool-backend/internal/users"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
)

// AuthLogin exchanges form credentials for a bearer token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body"))
			return
		}

		token, err := svc.Login(r.Context(), auth.LoginRequest{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, token)
	}
}

// AuthMe returns the authenticated caller's profile.
func AuthMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "could not validate credentials"))
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
