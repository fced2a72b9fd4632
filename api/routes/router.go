package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridepoolhq/ridepool-backend/api/controllers"
	"github.com/ridepoolhq/ridepool-backend/api/middleware"
	"github.com/ridepoolhq/ridepool-backend/internal/auth"
	"github.com/ridepoolhq/ridepool-backend/internal/participations"
	"github.com/ridepoolhq/ridepool-backend/internal/relay"
	"github.com/ridepoolhq/ridepool-backend/internal/rides"
	"github.com/ridepoolhq/ridepool-backend/internal/users"
	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	"github.com/ridepoolhq/ridepool-backend/pkg/db"
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
	"github.com/ridepoolhq/ridepool-backend/pkg/metrics"
)

type userLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// NewRouter assembles the full HTTP surface. Reads are open; mutation routes
// sit behind the bearer auth middleware.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	limiter rateLimiterStore,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	loader userLoader,
	usersService users.Service,
	authService auth.Service,
	ridesService rides.Service,
	participationsService participations.Service,
	hub *relay.Hub,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(httpMetrics),
	)

	requireAuth := middleware.Auth(cfg.JWT, loader, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if hub != nil {
		r.Get("/ws", hub.ServeWS)
	}

	r.Route("/users", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post("/", controllers.UserRegister(usersService, logg))
		r.Get("/", controllers.UserList(usersService, logg))
		r.Get("/{id}", controllers.UserGet(usersService, logg))
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(requireAuth).Get("/me", controllers.AuthMe(usersService, logg))
	})

	r.Route("/rides", func(r chi.Router) {
		r.Get("/", controllers.RideList(ridesService, logg))
		r.Get("/code/{code}", controllers.RideGetByCode(ridesService, logg))
		r.Get("/{id}", controllers.RideGet(ridesService, logg))
		r.Get("/{id}/participants", controllers.RideParticipants(ridesService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", controllers.RideCreate(ridesService, logg))
			r.Get("/owned", controllers.RideListOwned(ridesService, logg))
			r.Get("/joined", controllers.RideListJoined(ridesService, logg))
			r.Get("/available", controllers.RideListAvailable(ridesService, logg))
			r.Put("/{id}", controllers.RideUpdate(ridesService, logg))
			r.Delete("/{id}", controllers.RideDelete(ridesService, logg))
		})
	})

	r.Route("/participations", func(r chi.Router) {
		r.Get("/", controllers.ParticipationList(participationsService, logg))
		r.Get("/{id}", controllers.ParticipationGet(participationsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", controllers.ParticipationJoin(participationsService, logg))
			r.Put("/{id}", controllers.ParticipationUpdateLocation(participationsService, logg))
			r.Delete("/{id}", controllers.ParticipationLeave(participationsService, logg))
		})
	})

	return r
}
