package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/httpx/middlewares"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
)

// NewRouter builds the gateway routes. limiter may be nil.
func NewRouter(handler *Handler, limiter *middlewares.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)
	r.Handle("/metrics", telemetry.MetricsHandler())

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Handler)
		}

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/artists", handler.ListArtists)
			r.Post("/artists", handler.CreateArtist)
			r.Put("/artists/{id}", handler.UpdateArtist)
			r.Delete("/artists/{id}", handler.DeleteArtist)

			r.Get("/albums", handler.ListAlbums)
			r.Post("/albums", handler.CreateAlbum)
			r.Put("/albums/{id}", handler.UpdateAlbum)
			r.Delete("/albums/{id}", handler.DeleteAlbum)
		})

		r.Post("/users", handler.CreateUser)
		r.Get("/users/{email}", handler.FindUser)
		r.Post("/auth/login", handler.Login)

		r.Post("/orders", handler.CreateOrder)
		r.Get("/orders/user/{userId}", handler.UserOrders)
	})
	return r
}
