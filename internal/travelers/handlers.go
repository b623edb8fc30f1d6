// internal/travelers/handlers.go

package travelers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/utils"
)

// Handler handles profile-related HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new profile handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMyProfile returns the caller's full profile
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context(), auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err, "Failed to get profile")
		return
	}

	utils.SuccessResponse(w, profile, http.StatusOK)
}

// UpsertProfile creates or replaces the caller's profile
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.service.UpsertProfile(r.Context(), auth.GetUserIDFromContext(r.Context()), &req)
	if err != nil {
		h.respondError(w, err, "Failed to save profile")
		return
	}

	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.service.UpdateLocation(r.Context(), auth.GetUserIDFromContext(r.Context()), &req)
	if err != nil {
		h.respondError(w, err, "Failed to update location")
		return
	}

	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.service.UpdateAgentPreferences(r.Context(), auth.GetUserIDFromContext(r.Context()), &req)
	if err != nil {
		h.respondError(w, err, "Failed to update preferences")
		return
	}

	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), auth.GetUserIDFromContext(r.Context())); err != nil {
		h.respondError(w, err, "Failed to deactivate profile")
		return
	}

	utils.MessageResponse(w, "Profile deactivated", http.StatusOK)
}

// UploadPicture handles multipart profile image uploads
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.ErrorResponse(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.ErrorResponse(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	profile, err := h.service.UploadProfileImage(r.Context(), auth.GetUserIDFromContext(r.Context()), file, header)
	if err != nil {
		h.respondError(w, err, "Failed to upload image")
		return
	}

	utils.SuccessResponse(w, profile, http.StatusOK)
}

// Nearby lists active travelers within ?radius= km
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	var radius float64
	if raw := r.URL.Query().Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			utils.ErrorResponse(w, "Invalid radius", http.StatusBadRequest)
			return
		}
		radius = v
	}

	nearby, err := h.service.FindNearby(r.Context(), auth.GetUserIDFromContext(r.Context()), radius)
	if err != nil {
		h.respondError(w, err, "Failed to find nearby travelers")
		return
	}

	utils.SuccessResponse(w, nearby, http.StatusOK)
}

// GetTraveler returns another traveler's public profile
func (h *Handler) GetTraveler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "Failed to get profile")
		return
	}

	if !profile.IsActive {
		utils.ErrorResponse(w, "Profile not found", http.StatusNotFound)
		return
	}

	utils.SuccessResponse(w, profile.Public(), http.StatusOK)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		utils.ErrorResponse(w, "Profile not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidImage):
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrImageTooLarge):
		utils.ErrorResponse(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		utils.ErrorResponse(w, fallback, http.StatusInternalServerError)
	}
}
