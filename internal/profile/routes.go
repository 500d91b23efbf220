// internal/profile/routes.go

package profile

import (
	"github.com/go-chi/chi/v5"

	"github.com/matcha-dev/matcha-backend/internal/auth"
)

// RegisterRoutes registers all profile routes
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware *auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Profile viewing
		r.Get("/api/v1/profile", handler.GetMyProfile)
		r.Get("/api/v1/users/{id}/profile", handler.GetUserProfile)
		r.Put("/api/v1/profile", handler.UpdateProfile)

		// Profile setup
		r.Post("/api/v1/profile/setup", handler.SetupProfile)
		r.Put("/api/v1/profile/location", handler.UpdateLocation)

		// Pictures
		r.Post("/api/v1/profile/pictures", handler.AddPicture)
		r.Delete("/api/v1/profile/pictures", handler.RemovePicture)

		// Profile completion and visits
		r.Get("/api/v1/profile/completion", handler.GetCompletion)
		r.Get("/api/v1/profile/visitors", handler.GetVisitors)

		// Presence
		r.Post("/api/v1/profile/heartbeat", handler.Heartbeat)

		// Account status
		r.Post("/api/v1/profile/deactivate", handler.DeactivateAccount)
		r.Post("/api/v1/profile/reactivate", handler.ReactivateAccount)
	})
}
