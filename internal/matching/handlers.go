// internal/matching/handlers.go

package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/utils"
	"github.com/xperia/xperia-backend/internal/travelers"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMatches lists the caller's matches
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.List(r.Context(), auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, err, "Failed to get matches")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, matches)
}

// ScanNow runs "find matches now"
func (h *Handler) ScanNow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.service.ScanNow(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Failed to find matches")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// RunAgent runs the autonomous agent for the caller right away
func (h *Handler) RunAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.service.RunAgent(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Failed to run agent")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireActor(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}

	match, err := h.service.Get(r.Context(), userID, matchID)
	if err != nil {
		respondError(w, err, "Failed to get match")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, match)
}

// Respond accepts or declines a match
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireActor(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Respond(r.Context(), userID, matchID, req.Response)
	if err != nil {
		respondError(w, err, "Failed to respond to match")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// GetMeetup returns a meetup suggestion for the match
func (h *Handler) GetMeetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireActor(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}

	meetup, err := h.service.Meetup(r.Context(), userID, matchID)
	if err != nil {
		respondError(w, err, "Failed to suggest a meetup")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, meetup)
}

func requireActor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := auth.GetUserIDFromContext(r.Context())
	if userID == 0 {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}

func matchIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	matchID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return 0, false
	}
	return matchID, true
}

func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMatchNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, travelers.ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, travelers.ErrIncompleteProfile):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Complete your profile (age, interests, travel style, languages and location) first")
	case errors.Is(err, ErrMatchClosed):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidResponse):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
