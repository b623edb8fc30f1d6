// internal/matching/routes.go

package matching

import (
	"github.com/gorilla/mux"

	"github.com/xperia/xperia-backend/internal/auth"
)

// RegisterRoutes registers all match routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matches").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.GetMatches).Methods("GET")
	api.HandleFunc("/scan", handler.ScanNow).Methods("POST")
	api.HandleFunc("/agent", handler.RunAgent).Methods("POST")
	api.HandleFunc("/{id:[0-9]+}", handler.GetMatch).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}/respond", handler.Respond).Methods("POST")
	api.HandleFunc("/{id:[0-9]+}/meetup", handler.GetMeetup).Methods("GET")
}
