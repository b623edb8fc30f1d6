// internal/messaging/routes.go

package messaging

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xperia/xperia-backend/internal/auth"
)

// RegisterRoutes registers all messaging routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// WebSocket endpoint, token passed as ?token=
	router.Handle("/ws", authMiddleware.Authenticate(http.HandlerFunc(handler.HandleWebSocket))).Methods("GET")

	api := router.PathPrefix("/api/v1/conversations").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.GetConversations).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}/messages", handler.GetMessages).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}/messages", handler.SendMessage).Methods("POST")
}
