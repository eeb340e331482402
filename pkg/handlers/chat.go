package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// ChatService processes one conversation turn.
type ChatService interface {
	HandleMessage(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// ChatHandler handles conversation HTTP requests.
type ChatHandler struct {
	chat     ChatService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.HandleChat)
}

// HandleChat handles POST /api/chat requests. One request is one
// conversation turn.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.chat.HandleMessage(r.Context(), &req)
	if err != nil {
		h.writeError(w, &req, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, req *models.ChatRequest, err error) {
	switch {
	case errors.Is(err, apperrors.ErrProviderUnavailable):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "provider_unavailable",
			"The nutrition service is temporarily unavailable. Please try again shortly.")
	case errors.Is(err, apperrors.ErrInvalidWeight):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_weight",
			"Ingredient weight must be greater than zero.")
	case errors.Is(err, apperrors.ErrSessionNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "session_not_found", "Session not found")
	default:
		h.logger.Error("Chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
