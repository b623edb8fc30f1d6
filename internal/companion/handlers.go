// internal/companion/handlers.go

package companion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/utils"
	"github.com/xperia/xperia-backend/internal/travelers"
)

// ProfileLookup loads the caller's traveler profile
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID int64) (*travelers.Profile, error)
}

type Handler struct {
	service  *Service
	profiles ProfileLookup
}

func NewHandler(service *Service, profiles ProfileLookup) *Handler {
	return &Handler{service: service, profiles: profiles}
}

type ItineraryResponse struct {
	Destination string   `json:"destination"`
	Suggestions []string `json:"suggestions"`
}

// GenerateItinerary returns trip suggestions. Missing interests and style
// are taken from the caller's profile.
func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Interests) == 0 || req.TravelStyle == "" {
		profile, err := h.profiles.GetProfile(r.Context(), auth.GetUserIDFromContext(r.Context()))
		switch {
		case err == nil:
			if len(req.Interests) == 0 {
				req.Interests = profile.Interests
			}
			if req.TravelStyle == "" {
				req.TravelStyle = string(profile.TravelStyle)
			}
		case !errors.Is(err, travelers.ErrProfileNotFound):
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load profile")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, ItineraryResponse{
		Destination: req.Destination,
		Suggestions: h.service.Itinerary(r.Context(), &req),
	})
}

// RegisterRoutes registers the companion routes
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/companion").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/itinerary", handler.GenerateItinerary).Methods("POST")
}
