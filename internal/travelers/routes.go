// internal/travelers/routes.go

package travelers

import (
	"github.com/go-chi/chi/v5"

	"github.com/xperia/xperia-backend/internal/auth"
)

// RegisterRoutes registers all profile routes
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware *auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/api/v1/travelers/me", handler.GetMyProfile)
		r.Put("/api/v1/travelers/me", handler.UpsertProfile)
		r.Put("/api/v1/travelers/me/location", handler.UpdateLocation)
		r.Put("/api/v1/travelers/me/preferences", handler.UpdatePreferences)
		r.Post("/api/v1/travelers/me/deactivate", handler.Deactivate)
		r.Post("/api/v1/travelers/me/picture", handler.UploadPicture)

		r.Get("/api/v1/travelers/nearby", handler.Nearby)
		r.Get("/api/v1/travelers/{id}", handler.GetTraveler)
	})
}
