package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RichardoC/pad-chat/internal/auth"
	"github.com/RichardoC/pad-chat/internal/chatstore"
	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/session"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// Credentials is the part of the completion client the API configures.
type Credentials interface {
	Configure(ctx context.Context, credential string) bool
	Reset(ctx context.Context) error
	IsConfigured() bool
}

// Resolver returns the controller and credential of userID. Each user gets
// their own conversations, active pointer and saved credential.
type Resolver func(ctx context.Context, userID string) (*session.Controller, Credentials, error)

// Handler serves the chat API. Every request runs against the state of the
// identity the auth middleware attached to it.
type Handler struct {
	resolve  Resolver
	markdown goldmark.Markdown
	logger   *zap.Logger
}

// NewHandler returns a Handler that looks up per-user state with resolve.
func NewHandler(resolve Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolve:  resolve,
		markdown: goldmark.New(),
		logger:   logger,
	}
}

// user resolves the caller's state, writing a 500 when that fails.
func (h *Handler) user(w http.ResponseWriter, r *http.Request) (*session.Controller, Credentials, bool) {
	userID := auth.FromContext(r.Context()).UserID
	chat, creds, err := h.resolve(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load user session", zap.String("user", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return chat, creds, true
}

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Content string `json:"content"`
}

// UpdateConversationRequest renames a conversation.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// CredentialRequest carries the API key to save.
type CredentialRequest struct {
	Credential string `json:"credential"`
}

// CredentialResponse reports whether a key is configured.
type CredentialResponse struct {
	Configured bool `json:"configured"`
}

// MessageView is a stored message, optionally with rendered HTML.
type MessageView struct {
	models.Message
	HTML string `json:"html,omitempty"`
}

// ConversationResponse is one conversation with its messages.
type ConversationResponse struct {
	ID       string        `json:"id,omitempty"`
	Title    string        `json:"title,omitempty"`
	Messages []MessageView `json:"messages"`
}

// ErrorResponse is written for every classified failure.
type ErrorResponse struct {
	Error string       `json:"error"`
	Kind  session.Kind `json:"kind,omitempty"`
}

// HandleMessage runs one turn for the caller.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := chat.Submit(r.Context(), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, turn)
}

// GetConversations lists the caller's conversations, newest first.
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	conversations, err := chat.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Debug("Retrieved conversations",
		zap.Int("count", len(conversations)),
		zap.String("user", auth.FromContext(r.Context()).UserID))
	h.writeJSON(w, http.StatusOK, conversations)
}

// NewConversation clears the active pointer.
func (h *Handler) NewConversation(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := chat.NewConversation(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActiveConversation returns the conversation that was open last.
func (h *Handler) GetActiveConversation(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	conv, err := chat.Resume(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if conv == nil {
		h.writeJSON(w, http.StatusOK, ConversationResponse{Messages: []MessageView{}})
		return
	}
	h.writeJSON(w, http.StatusOK, ConversationResponse{
		ID:       conv.ID,
		Title:    conv.Title,
		Messages: h.views(conv.Messages, r.URL.Query().Get("format") == "html"),
	})
}

// GetMessages opens a conversation and returns its messages.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	messages, err := chat.Select(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ConversationResponse{
		ID:       id,
		Messages: h.views(messages, r.URL.Query().Get("format") == "html"),
	})
}

// DeleteConversation removes a conversation.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	found, err := chat.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UpdateConversation renames a conversation.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	chat, _, ok := h.user(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	found, err := chat.Rename(r.Context(), id, req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetCredential reports whether the caller has a key configured.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.user(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, CredentialResponse{Configured: creds.IsConfigured()})
}

// SetCredential saves the caller's key.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.user(w, r)
	if !ok {
		return
	}
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !creds.Configure(r.Context(), req.Credential) {
		http.Error(w, "Invalid credential", http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, CredentialResponse{Configured: true})
}

// ResetCredential forgets the caller's key.
func (h *Handler) ResetCredential(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := creds.Reset(r.Context()); err != nil {
		h.logger.Error("Failed to reset credential", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, CredentialResponse{Configured: false})
}

// GetSuggestions returns the starter prompts.
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, session.Suggestions())
}

func (h *Handler) views(messages []models.Message, html bool) []MessageView {
	out := make([]MessageView, len(messages))
	for i, m := range messages {
		out[i] = MessageView{Message: m}
		if !html {
			continue
		}
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(m.Content), &buf); err != nil {
			h.logger.Warn("Failed to render markdown", zap.String("messageId", m.ID), zap.Error(err))
			continue
		}
		out[i].HTML = buf.String()
	}
	return out
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch session.KindOf(err) {
	case session.KindValidation:
		switch {
		case errors.Is(err, session.ErrBusy):
			return http.StatusConflict
		case errors.Is(err, chatstore.ErrConversationNotFound):
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case session.KindNotConfigured:
		return http.StatusPreconditionFailed
	case session.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := session.KindOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	}

	msg := err.Error()
	if kind == session.KindStorage || kind == session.KindUnknown {
		msg = "Internal server error"
	}
	h.writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
