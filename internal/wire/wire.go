package wire

import (
	"net/http"
	"time"

	"smart-parking/internal/adaptor"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/usecase"
	"smart-parking/pkg/middleware"
	"smart-parking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface and the services behind it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes. denied may be nil when no deny-list is
// configured.
func Wiring(
	repo *repository.Repository,
	db adaptor.Pinger,
	config *utils.Config,
	deps usecase.Dependencies,
	denied middleware.TokenChecker,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, config, deps, logger)
	handler := adaptor.NewHandler(service, db, logger)

	auth := middleware.Auth(config.JWT.Secret, denied, logger)
	router := setupRouter(handler, auth, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	auth func(http.Handler) http.Handler,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	timeout := time.Duration(config.App.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)
	r.Use(chimw.Timeout(timeout))

	// Apply routes
	wireAuth(r, handler.Auth, auth)
	wireSpot(r, handler.Spot, handler.Booking, auth, logger)
	wireBooking(r, handler.Booking, auth)
	wirePayment(r, handler.Payment, auth)

	r.Get("/health", handler.Health.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
