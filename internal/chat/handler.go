package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"pairchat/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub     *Hub
	history *HistoryService
}

func NewHandler(hub *Hub, history *HistoryService) *Handler {
	return &Handler{
		hub:     hub,
		history: history,
	}
}

// ServeWs runs the handshake for a live connection. The auth middleware has
// already verified the credential by the time we get here, so a request that
// reaches this handler always carries an identity; the upgrade, registration
// and initial presence push follow.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := newClient(h.hub, conn, identity.UserID, identity.Username)
	h.hub.Add(client)

	go client.writePump()
	go client.readPump()
}

// GetConversation serves GET /messages/{userId}: the full history between
// the caller and the named user, oldest first.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	peerID := chi.URLParam(r, "userId")
	messages, err := h.history.Conversation(r.Context(), identity.UserID, peerID)
	if err != nil {
		http.Error(w, "failed to fetch messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// EditMessage serves PUT /messages/{id}. Sender-only.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	msg, err := h.history.EditMessage(r.Context(), chi.URLParam(r, "id"), identity.UserID, req.Text)
	if err != nil {
		writeMessageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

// DeleteMessage serves DELETE /messages/{id}. Sender-only.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.history.DeleteMessage(r.Context(), chi.URLParam(r, "id"), identity.UserID); err != nil {
		writeMessageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func writeMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMessageNotFound):
		http.Error(w, "Message not found", http.StatusNotFound)
	case errors.Is(err, ErrNotSender):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
