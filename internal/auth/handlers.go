// internal/auth/handlers.go
// HTTP handlers for authentication endpoints

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xperia/xperia-backend/internal/common/utils"
)

// Handler handles HTTP requests for authentication
type Handler struct {
	service Service
}

// NewHandler creates a new auth handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all auth routes with the router
func (h *Handler) RegisterRoutes(router *mux.Router, authMiddleware *Middleware) {
	auth := router.PathPrefix("/api/auth").Subrouter()

	// Public routes
	auth.HandleFunc("/signup", h.Signup).Methods("POST")
	auth.HandleFunc("/login", h.Signin).Methods("POST")
	auth.HandleFunc("/refresh", h.RefreshToken).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")

	// Protected routes
	auth.Handle("/me", authMiddleware.Authenticate(http.HandlerFunc(h.Me))).Methods("GET")
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.service.Signup(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			utils.ErrorResponse(w, "Email already registered", http.StatusConflict)
			return
		}
		utils.ErrorResponse(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, response, http.StatusCreated)
}

// Signin handles user login
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.service.Signin(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			utils.ErrorResponse(w, "Invalid email or password", http.StatusUnauthorized)
		case errors.Is(err, ErrTooManyAttempts):
			utils.ErrorResponse(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
		case errors.Is(err, ErrAccountDisabled):
			utils.ErrorResponse(w, "Account disabled", http.StatusForbidden)
		default:
			utils.ErrorResponse(w, "Failed to sign in", http.StatusInternalServerError)
		}
		return
	}

	utils.SuccessResponse(w, response, http.StatusOK)
}

// RefreshToken exchanges a refresh token for a new token pair
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.ErrorResponse(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	response, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserNotFound) {
			utils.ErrorResponse(w, "Invalid refresh token", http.StatusUnauthorized)
			return
		}
		utils.ErrorResponse(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, response, http.StatusOK)
}

// Logout revokes a refresh token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.ErrorResponse(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			utils.ErrorResponse(w, "Invalid refresh token", http.StatusUnauthorized)
			return
		}
		utils.ErrorResponse(w, "Failed to logout", http.StatusInternalServerError)
		return
	}

	utils.MessageResponse(w, "Logged out successfully", http.StatusOK)
}

// Me returns the authenticated account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.ErrorResponse(w, "User not found", http.StatusNotFound)
			return
		}
		utils.ErrorResponse(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, user, http.StatusOK)
}
