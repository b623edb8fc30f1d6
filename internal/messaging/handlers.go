// internal/messaging/handlers.go

package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/utils"
)

type Handler struct {
	service  Service
	hub      *Hub
	upgrader *websocket.Upgrader
	limiter  *RateLimiter
}

func NewHandler(service Service, hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: NewUpgrader(allowedOrigins),
		limiter:  NewRateLimiter(30, 10*time.Second),
	}
}

// HandleWebSocket upgrades the connection and registers it with the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	if userID == 0 {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, userID, h.service, h.limiter)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	client.Start()
}

// GetConversations lists the caller's conversations
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context(), auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get conversations")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, conversations)
}

// GetMessages returns the conversation history, oldest first
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	messages, err := h.service.GetMessages(r.Context(), auth.GetUserIDFromContext(r.Context()), conversationID)
	if err != nil {
		respondError(w, err, "Failed to get messages")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, messages)
}

// SendMessage sends a message (REST fallback for the websocket)
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.service.SendMessage(r.Context(), auth.GetUserIDFromContext(r.Context()), conversationID, &req)
	if err != nil {
		respondError(w, err, "Failed to send message")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, message)
}

func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrNotParticipant):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConversationNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, ErrEmptyMessage):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
