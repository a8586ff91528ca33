package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter builds the gateway's full chi route table: the middleware
// chain (recovery, request ID, structured logging, CORS) wraps an
// unauthenticated /oauth/token and /manage/health pair, with every
// /api/v1 route behind bearer authentication.
func NewRouter(h *Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/manage/health", h.Health)
	r.Post("/oauth/token", h.IssueToken)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(bearerAuth(h.Issuer))

		api.Get("/libraries", h.GetLibraries)
		api.Get("/libraries/{libraryUid}/books", h.GetBooks)
		api.Get("/reservations", h.GetReservations)
		api.Post("/reservations", h.ReserveBook)
		api.Post("/reservations/{reservationUid}/return", h.ReturnBook)
		api.Get("/rating", h.GetRating)
	})

	return r
}
