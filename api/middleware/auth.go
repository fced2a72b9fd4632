package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ridepoolhq/ridepool-backend/api/responses"
	pkgauth "github.com/ridepoolhq/ridepool-backend/pkg/auth"
	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
	"gorm.io/gorm"
)

// Every rejection shares one message so a caller cannot tell a bad token
// from a token whose user no longer exists.
const credentialRejectedMessage = "could not validate credentials"

type userLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Auth validates a bearer token, confirms the user still exists, and seeds
// the request context with the caller identity.
func Auth(cfg config.JWTConfig, users userLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, credentialRejectedMessage))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, credentialRejectedMessage))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, credentialRejectedMessage))
				return
			}

			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, credentialRejectedMessage))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user"))
				return
			}

			ctx := WithUserID(r.Context(), user.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, user.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
